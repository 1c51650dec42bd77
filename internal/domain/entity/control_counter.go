package entity

// ControlCounterKey clave compuesta del contador de números de control.
// Cada combinación lleva su propia secuencia contigua que arranca en 1.
type ControlCounterKey struct {
	Ambiente    string // "00" pruebas, "01" producción
	TipoDte     string // "01", "03", "14"
	AnioEmision int
	EstCode     string // código de establecimiento (ej. M002)
	PvCode      string // código de punto de venta (ej. P001)
}

// ControlCounter fila del contador transaccional. LastNumber es el último
// número emitido; ProcessedNumber es la marca de agua de números cuyo DTE fue
// aceptado por Hacienda (best effort, no afecta la asignación). La diferencia
// entre ambos expone los huecos dejados por envíos rechazados o pendientes.
type ControlCounter struct {
	Key             ControlCounterKey
	LastNumber      int64
	ProcessedNumber int64
}

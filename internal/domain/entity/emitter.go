package entity

// EmitterAddress dirección fiscal del emisor.
type EmitterAddress struct {
	Departamento string
	Municipio    string
	Complemento  string
}

// Emitter perfil del emisor de los DTE. Va completo en el bloque "emisor" de
// cada documento y aporta el establecimiento/punto de venta que participan en
// el número de control.
type Emitter struct {
	NIT                 string
	NRC                 string
	Nombre              string
	NombreComercial     string
	CodActividad        string
	DescActividad       string
	Direccion           EmitterAddress
	Telefono            string
	Correo              string
	CodEstable          string
	CodPuntoVenta       string
	CodEstableMH        string
	CodPuntoVentaMH     string
	TipoEstablecimiento string
}

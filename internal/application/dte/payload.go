package dte

// Estructuras del JSON que espera el puente DTE. Los nombres de campo siguen
// el esquema de Hacienda (El Salvador) tal cual; el contrato es opaco y se
// envía/archiva byte a byte.

// Versiones y tipos de DTE por documento.
const (
	TipoDteCF  = "01"
	TipoDteCCF = "03"
	TipoDteSX  = "14"

	versionCF  = 1
	versionCCF = 3
	versionSX  = 1
)

// PlaceholderNumDocumento se usa cuando el receptor no tiene DUI ni NIT.
const PlaceholderNumDocumento = "00000000-0"

type envelopeDTE struct {
	DTE any `json:"dte"`
}

type identificacion struct {
	Version          int     `json:"version"`
	Ambiente         string  `json:"ambiente"`
	TipoDte          string  `json:"tipoDte"`
	NumeroControl    string  `json:"numeroControl"`
	CodigoGeneracion string  `json:"codigoGeneracion"`
	TipoModelo       int     `json:"tipoModelo"`
	TipoOperacion    int     `json:"tipoOperacion"`
	TipoContingencia *int    `json:"tipoContingencia"`
	MotivoContin     *string `json:"motivoContin"`
	FecEmi           string  `json:"fecEmi"`
	HorEmi           string  `json:"horEmi"`
	TipoMoneda       string  `json:"tipoMoneda"`
}

type direccion struct {
	Departamento string `json:"departamento"`
	Municipio    string `json:"municipio"`
	Complemento  string `json:"complemento"`
}

type emisor struct {
	NIT                 string    `json:"nit"`
	NRC                 string    `json:"nrc"`
	Nombre              string    `json:"nombre"`
	CodActividad        string    `json:"codActividad"`
	DescActividad       string    `json:"descActividad"`
	NombreComercial     string    `json:"nombreComercial"`
	TipoEstablecimiento string    `json:"tipoEstablecimiento"`
	Direccion           direccion `json:"direccion"`
	Telefono            string    `json:"telefono"`
	Correo              string    `json:"correo"`
	CodEstable          string    `json:"codEstable"`
	CodPuntoVenta       string    `json:"codPuntoVenta"`
	CodEstableMH        string    `json:"codEstableMH"`
	CodPuntoVentaMH     string    `json:"codPuntoVentaMH"`
}

type receptorCF struct {
	TipoDocumento string    `json:"tipoDocumento"`
	NumDocumento  string    `json:"numDocumento"`
	NRC           *string   `json:"nrc"`
	Nombre        string    `json:"nombre"`
	CodActividad  *string   `json:"codActividad"`
	DescActividad *string   `json:"descActividad"`
	Direccion     direccion `json:"direccion"`
	Telefono      string    `json:"telefono"`
	Correo        *string   `json:"correo"`
}

type receptorCCF struct {
	NIT             string    `json:"nit"`
	NRC             string    `json:"nrc"`
	Nombre          string    `json:"nombre"`
	NombreComercial string    `json:"nombreComercial"`
	CodActividad    *string   `json:"codActividad"`
	DescActividad   *string   `json:"descActividad"`
	Direccion       direccion `json:"direccion"`
	Telefono        string    `json:"telefono"`
	Correo          *string   `json:"correo"`
}

type sujetoExcluido struct {
	TipoDocumento string    `json:"tipoDocumento"`
	NumDocumento  string    `json:"numDocumento"`
	Nombre        string    `json:"nombre"`
	CodActividad  *string   `json:"codActividad"`
	DescActividad *string   `json:"descActividad"`
	Direccion     direccion `json:"direccion"`
	Telefono      string    `json:"telefono"`
	Correo        *string   `json:"correo"`
}

type linea struct {
	NumItem         int      `json:"numItem"`
	TipoItem        int      `json:"tipoItem"`
	NumeroDocumento *string  `json:"numeroDocumento"`
	Codigo          string   `json:"codigo"`
	CodTributo      *string  `json:"codTributo"`
	Descripcion     string   `json:"descripcion"`
	Cantidad        float64  `json:"cantidad"`
	UniMedida       int      `json:"uniMedida"`
	PrecioUni       float64  `json:"precioUni"`
	MontoDescu      float64  `json:"montoDescu"`
	VentaNoSuj      float64  `json:"ventaNoSuj"`
	VentaExenta     float64  `json:"ventaExenta"`
	VentaGravada    float64  `json:"ventaGravada"`
	Tributos        []string `json:"tributos"`
	PSV             float64  `json:"psv"`
	NoGravado       float64  `json:"noGravado"`
	IvaItem         *float64 `json:"ivaItem,omitempty"` // solo CF
}

type lineaSX struct {
	NumItem     int     `json:"numItem"`
	TipoItem    int     `json:"tipoItem"`
	Codigo      string  `json:"codigo"`
	Descripcion string  `json:"descripcion"`
	Cantidad    float64 `json:"cantidad"`
	UniMedida   int     `json:"uniMedida"`
	PrecioUni   float64 `json:"precioUni"`
	MontoDescu  float64 `json:"montoDescu"`
	Compra      float64 `json:"compra"`
}

type pago struct {
	Codigo     string  `json:"codigo"`
	MontoPago  float64 `json:"montoPago"`
	Referencia *string `json:"referencia"`
	Plazo      *string `json:"plazo"`
	Periodo    *int    `json:"periodo"`
}

type tributoResumen struct {
	Codigo      string  `json:"codigo"`
	Descripcion string  `json:"descripcion"`
	Valor       float64 `json:"valor"`
}

type resumen struct {
	TotalNoSuj          float64          `json:"totalNoSuj"`
	TotalExenta         float64          `json:"totalExenta"`
	TotalGravada        float64          `json:"totalGravada"`
	SubTotalVentas      float64          `json:"subTotalVentas"`
	DescuNoSuj          float64          `json:"descuNoSuj"`
	DescuExenta         float64          `json:"descuExenta"`
	DescuGravada        float64          `json:"descuGravada"`
	PorcentajeDescuento float64          `json:"porcentajeDescuento"`
	TotalDescu          float64          `json:"totalDescu"`
	Tributos            []tributoResumen `json:"tributos"`
	SubTotal            float64          `json:"subTotal"`
	IvaRete1            float64          `json:"ivaRete1"`
	ReteRenta           float64          `json:"reteRenta"`
	TotalIva            *float64         `json:"totalIva,omitempty"`  // solo CF
	IvaPerci1           *float64         `json:"ivaPerci1,omitempty"` // solo CCF
	MontoTotalOperacion float64          `json:"montoTotalOperacion"`
	TotalNoGravado      float64          `json:"totalNoGravado"`
	TotalPagar          float64          `json:"totalPagar"`
	TotalLetras         string           `json:"totalLetras"`
	SaldoFavor          float64          `json:"saldoFavor"`
	CondicionOperacion  int              `json:"condicionOperacion"`
	Pagos               []pago           `json:"pagos"`
	NumPagoElectronico  *string          `json:"numPagoElectronico"`
}

type resumenSX struct {
	TotalCompra        float64 `json:"totalCompra"`
	Descu              float64 `json:"descu"`
	TotalDescu         float64 `json:"totalDescu"`
	SubTotal           float64 `json:"subTotal"`
	IvaRete1           float64 `json:"ivaRete1"`
	ReteRenta          float64 `json:"reteRenta"`
	TotalPagar         float64 `json:"totalPagar"`
	TotalLetras        string  `json:"totalLetras"`
	CondicionOperacion int     `json:"condicionOperacion"`
	Pagos              []pago  `json:"pagos"`
	Observaciones      string  `json:"observaciones"`
}

type extension struct {
	NombEntrega   *string `json:"nombEntrega"`
	DocuEntrega   *string `json:"docuEntrega"`
	NombRecibe    *string `json:"nombRecibe"`
	DocuRecibe    *string `json:"docuRecibe"`
	Observaciones string  `json:"observaciones"`
	PlacaVehiculo *string `json:"placaVehiculo"`
}

type documentoCF struct {
	Identificacion       identificacion `json:"identificacion"`
	Emisor               emisor         `json:"emisor"`
	Receptor             receptorCF     `json:"receptor"`
	CuerpoDocumento      []linea        `json:"cuerpoDocumento"`
	Resumen              resumen        `json:"resumen"`
	Extension            extension      `json:"extension"`
	DocumentoRelacionado any            `json:"documentoRelacionado"`
	OtrosDocumentos      any            `json:"otrosDocumentos"`
	VentaTercero         any            `json:"ventaTercero"`
	Apendice             any            `json:"apendice"`
}

type documentoCCF struct {
	Identificacion       identificacion `json:"identificacion"`
	Emisor               emisor         `json:"emisor"`
	Receptor             receptorCCF    `json:"receptor"`
	CuerpoDocumento      []linea        `json:"cuerpoDocumento"`
	Resumen              resumen        `json:"resumen"`
	Extension            extension      `json:"extension"`
	DocumentoRelacionado any            `json:"documentoRelacionado"`
	OtrosDocumentos      any            `json:"otrosDocumentos"`
	VentaTercero         any            `json:"ventaTercero"`
	Apendice             any            `json:"apendice"`
}

type documentoSX struct {
	Identificacion  identificacion `json:"identificacion"`
	Emisor          emisor         `json:"emisor"`
	SujetoExcluido  sujetoExcluido `json:"sujetoExcluido"`
	CuerpoDocumento []lineaSX      `json:"cuerpoDocumento"`
	Resumen         resumenSX      `json:"resumen"`
	Apendice        any            `json:"apendice"`
}

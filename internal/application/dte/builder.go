package dte

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garciaflores/facturador-api/internal/domain"
	domdte "github.com/garciaflores/facturador-api/internal/domain/dte"
	"github.com/garciaflores/facturador-api/internal/domain/entity"
	"github.com/garciaflores/facturador-api/pkg/logger"
)

// Builder transforma factura + líneas + receptor en el JSON DTE firmable por
// el puente. No hace I/O: todo lo que necesita entra por parámetros.
type Builder struct {
	emitter  entity.Emitter
	ambiente string
	log      *logger.Logger
}

// NewBuilder construye el builder para un emisor y ambiente fijos.
func NewBuilder(emitter entity.Emitter, ambiente string, log *logger.Logger) *Builder {
	return &Builder{emitter: emitter, ambiente: ambiente, log: log}
}

// BuildOptions parámetros de emisión de un intento concreto.
type BuildOptions struct {
	// Emission fija horEmi (y fecEmi si ForceNowDate). Lo aporta el pipeline
	// para que el builder siga siendo una función pura de sus entradas.
	Emission     time.Time
	ForceNowDate bool
}

// BuiltDocument resultado de la construcción: el JSON listo para enviar más
// los campos denormalizados que el DTERecord archiva para búsqueda.
type BuiltDocument struct {
	Payload      []byte
	ReceiverDoc  string
	ReceiverName string
	Total        decimal.Decimal
}

// Build arma el documento según el tipo de la factura.
func (b *Builder) Build(invoice *entity.Invoice, items []*entity.InvoiceItem, client *entity.Client, opts BuildOptions) (*BuiltDocument, error) {
	if len(items) == 0 {
		return nil, domain.ErrSinItems
	}
	switch invoice.DocType {
	case entity.DocTypeCF:
		return b.buildCF(invoice, items, client, opts)
	case entity.DocTypeCCF:
		return b.buildCCF(invoice, items, client, opts)
	case entity.DocTypeSX:
		return b.buildSX(invoice, items, client, opts)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrTipoDocumentoInvalido, invoice.DocType)
	}
}

func (b *Builder) identificacion(invoice *entity.Invoice, tipoDte string, version int, opts BuildOptions) identificacion {
	fecEmi := invoice.Date
	if opts.ForceNowDate || fecEmi.IsZero() {
		fecEmi = opts.Emission
	}
	return identificacion{
		Version:          version,
		Ambiente:         b.ambiente,
		TipoDte:          tipoDte,
		NumeroControl:    invoice.NumeroControl,
		CodigoGeneracion: invoice.CodigoGeneracion,
		TipoModelo:       1,
		TipoOperacion:    1,
		FecEmi:           fecEmi.Format("2006-01-02"),
		HorEmi:           opts.Emission.Format("15:04:05"),
		TipoMoneda:       "USD",
	}
}

func (b *Builder) buildCF(invoice *entity.Invoice, items []*entity.InvoiceItem, client *entity.Client, opts BuildOptions) (*BuiltDocument, error) {
	receptor, receiverDoc, receiverName := b.receptorCF(invoice, client)

	cuerpo := make([]linea, 0, len(items))
	totalGravada := decimal.Zero
	totalIva := decimal.Zero
	totalNoSuj := decimal.Zero

	for i, item := range items {
		gross := item.Quantity.Mul(item.UnitPrice)
		ln := linea{
			NumItem:     i + 1,
			TipoItem:    1,
			Codigo:      serviceCode(item, "SERV"),
			Descripcion: serviceName(item),
			Cantidad:    f2(item.Quantity),
			UniMedida:   59,
			PrecioUni:   f2(item.UnitPrice),
		}
		if item.NoSujeta {
			totalNoSuj = totalNoSuj.Add(gross)
			ln.VentaNoSuj = f2(gross)
			ln.IvaItem = floatPtr(0)
		} else {
			base, iva := domdte.SplitGrossAmount(gross)
			totalGravada = totalGravada.Add(base)
			totalIva = totalIva.Add(iva)
			ln.VentaGravada = f2(base)
			ln.IvaItem = floatPtr(f2(iva))
		}
		cuerpo = append(cuerpo, ln)
	}

	totalGravada = domdte.Round2(totalGravada)
	totalIva = domdte.Round2(totalIva)
	totalNoSuj = domdte.Round2(totalNoSuj)
	montoTotal := domdte.Round2(totalGravada.Add(totalIva).Add(totalNoSuj))

	doc := documentoCF{
		Identificacion:  b.identificacion(invoice, TipoDteCF, versionCF, opts),
		Emisor:          emitterPayload(b.emitter),
		Receptor:        receptor,
		CuerpoDocumento: cuerpo,
		Resumen: resumen{
			TotalNoSuj:          f2(totalNoSuj),
			TotalGravada:        f2(totalGravada),
			SubTotalVentas:      f2(totalGravada),
			SubTotal:            f2(totalGravada),
			TotalIva:            floatPtr(f2(totalIva)),
			MontoTotalOperacion: f2(montoTotal),
			TotalPagar:          f2(montoTotal),
			TotalLetras:         totalLetras(montoTotal),
			CondicionOperacion:  1,
			Pagos:               []pago{{Codigo: "01", MontoPago: f2(montoTotal)}},
		},
		Extension: extension{
			Observaciones: observationsOrDefault(invoice, "Venta al mostrador"),
		},
	}

	return b.finish(envelopeDTE{DTE: doc}, receiverDoc, receiverName, montoTotal)
}

func (b *Builder) buildCCF(invoice *entity.Invoice, items []*entity.InvoiceItem, client *entity.Client, opts BuildOptions) (*BuiltDocument, error) {
	receptor, receiverDoc, receiverName := b.receptorCCF(invoice, client)

	cuerpo := make([]linea, 0, len(items))
	totalGravada := decimal.Zero
	totalIva := decimal.Zero
	totalNoSuj := decimal.Zero

	for i, item := range items {
		gross := item.Quantity.Mul(item.UnitPrice)
		ln := linea{
			NumItem:     i + 1,
			TipoItem:    1,
			Codigo:      serviceCode(item, "SERVICIO"),
			Descripcion: serviceName(item),
			Cantidad:    f2(item.Quantity),
			UniMedida:   59,
			PrecioUni:   f2(item.UnitPrice),
		}
		if item.NoSujeta {
			totalNoSuj = totalNoSuj.Add(gross)
			ln.VentaNoSuj = f2(gross)
		} else {
			base, iva := domdte.SplitGrossAmount(gross)
			totalGravada = totalGravada.Add(base)
			totalIva = totalIva.Add(iva)
			ln.VentaGravada = f2(base)
			ln.Tributos = []string{"20"}
		}
		cuerpo = append(cuerpo, ln)
	}

	totalGravada = domdte.Round2(totalGravada)
	totalIva = domdte.Round2(totalIva)
	totalNoSuj = domdte.Round2(totalNoSuj)
	montoTotal := domdte.Round2(totalGravada.Add(totalIva).Add(totalNoSuj))

	doc := documentoCCF{
		Identificacion:  b.identificacion(invoice, TipoDteCCF, versionCCF, opts),
		Emisor:          emitterPayload(b.emitter),
		Receptor:        receptor,
		CuerpoDocumento: cuerpo,
		Resumen: resumen{
			TotalNoSuj:     f2(totalNoSuj),
			TotalGravada:   f2(totalGravada),
			SubTotalVentas: f2(totalGravada),
			SubTotal:       f2(totalGravada),
			Tributos: []tributoResumen{{
				Codigo:      "20",
				Descripcion: "Impuesto al Valor Agregado 13%",
				Valor:       f2(totalIva),
			}},
			IvaPerci1:           floatPtr(0),
			MontoTotalOperacion: f2(montoTotal),
			TotalPagar:          f2(montoTotal),
			TotalLetras:         totalLetras(montoTotal),
			CondicionOperacion:  1,
			Pagos:               []pago{{Codigo: "01", MontoPago: f2(montoTotal)}},
		},
		Extension: extension{
			Observaciones: observationsOrDefault(invoice, "Crédito fiscal para deducción fiscal del cliente"),
		},
	}

	return b.finish(envelopeDTE{DTE: doc}, receiverDoc, receiverName, montoTotal)
}

func (b *Builder) buildSX(invoice *entity.Invoice, items []*entity.InvoiceItem, client *entity.Client, opts BuildOptions) (*BuiltDocument, error) {
	sujeto, receiverDoc, receiverName := b.sujetoExcluido(invoice, client)

	cuerpo := make([]lineaSX, 0, len(items))
	totalCompra := decimal.Zero

	for i, item := range items {
		lineTotal := item.Subtotal
		if lineTotal.IsZero() {
			lineTotal = item.Quantity.Mul(item.UnitPrice)
		}
		lineTotal = domdte.Round2(lineTotal)
		totalCompra = totalCompra.Add(lineTotal)
		cuerpo = append(cuerpo, lineaSX{
			NumItem:     i + 1,
			TipoItem:    1,
			Codigo:      serviceCode(item, "SERV"),
			Descripcion: serviceName(item),
			Cantidad:    f2(item.Quantity),
			UniMedida:   59,
			PrecioUni:   f2(item.UnitPrice),
			Compra:      f2(lineTotal),
		})
	}

	totalCompra = domdte.Round2(totalCompra)

	doc := documentoSX{
		Identificacion:  b.identificacion(invoice, TipoDteSX, versionSX, opts),
		Emisor:          emitterPayload(b.emitter),
		SujetoExcluido:  sujeto,
		CuerpoDocumento: cuerpo,
		Resumen: resumenSX{
			TotalCompra:        f2(totalCompra),
			SubTotal:           f2(totalCompra),
			TotalPagar:         f2(totalCompra),
			TotalLetras:        totalLetras(totalCompra),
			CondicionOperacion: 1,
			Pagos:              []pago{{Codigo: "01", MontoPago: f2(totalCompra)}},
			Observaciones:      observationsOrDefault(invoice, "Venta a consumidor final - Sujeto Excluido"),
		},
	}

	return b.finish(envelopeDTE{DTE: doc}, receiverDoc, receiverName, totalCompra)
}

// ── receptores ────────────────────────────────────────────────────────────────

func (b *Builder) receptorCF(invoice *entity.Invoice, client *entity.Client) (receptorCF, string, string) {
	if client == nil {
		return receptorCF{
			TipoDocumento: "13",
			NumDocumento:  PlaceholderNumDocumento,
			Nombre:        "VENTA AL PUBLICO",
			Direccion:     b.emitterDireccion(),
			Telefono:      "00000000",
		}, PlaceholderNumDocumento, "VENTA AL PUBLICO"
	}

	name := client.DisplayName()
	if name == "" {
		name = "VENTA AL PUBLICO"
	}
	doc := firstNonEmpty(client.NIT, client.DUI)
	if doc == "" {
		doc = PlaceholderNumDocumento
		// Señal de calidad de datos, no un error: el DTE sale con placeholder.
		b.log.Warn().
			Int64("invoice_id", invoice.ID).
			Int64("client_id", client.ID).
			Msg("receptor sin DUI/NIT; se usa numDocumento placeholder")
	}

	return receptorCF{
		TipoDocumento: "13",
		NumDocumento:  doc,
		Nombre:        name,
		Direccion:     b.clientDireccion(client),
		Telefono:      firstNonEmpty(client.Phone, "00000000"),
		Correo:        strPtrOrNil(client.Email),
	}, doc, name
}

func (b *Builder) receptorCCF(invoice *entity.Invoice, client *entity.Client) (receptorCCF, string, string) {
	name := "CLIENTE"
	r := receptorCCF{
		Nombre:          name,
		NombreComercial: name,
		Direccion:       b.emitterDireccion(),
		Telefono:        "00000000",
	}
	if client == nil {
		return r, "", name
	}

	name = client.DisplayName()
	if name == "" {
		name = "CLIENTE"
	}
	if client.NIT == "" {
		b.log.Warn().
			Int64("invoice_id", invoice.ID).
			Int64("client_id", client.ID).
			Msg("receptor CCF sin NIT")
	}
	r = receptorCCF{
		NIT:             client.NIT,
		NRC:             client.NRC,
		Nombre:          name,
		NombreComercial: firstNonEmpty(client.CompanyName, name),
		CodActividad:    strPtrOrNil(client.ActivityCode),
		DescActividad:   strPtrOrNil(client.ActivityDescription),
		Direccion:       b.clientDireccion(client),
		Telefono:        firstNonEmpty(client.Phone, "00000000"),
		Correo:          strPtrOrNil(client.Email),
	}
	return r, client.NIT, name
}

func (b *Builder) sujetoExcluido(invoice *entity.Invoice, client *entity.Client) (sujetoExcluido, string, string) {
	name := "CONSUMIDOR FINAL"
	doc := "000000000"
	s := sujetoExcluido{
		TipoDocumento: "13",
		NumDocumento:  doc,
		Nombre:        name,
		Direccion:     b.emitterDireccion(),
		Telefono:      "00000000",
	}
	if client == nil {
		return s, doc, name
	}

	if n := client.DisplayName(); n != "" {
		name = n
	}
	if d := firstNonEmpty(client.DUI, client.NIT); d != "" {
		doc = d
	} else {
		b.log.Warn().
			Int64("invoice_id", invoice.ID).
			Int64("client_id", client.ID).
			Msg("sujeto excluido sin DUI/NIT; se usa numDocumento placeholder")
	}

	dir := b.clientDireccion(client)
	if client.Direccion != "" {
		dir.Complemento = client.Direccion
	}
	s = sujetoExcluido{
		TipoDocumento: "13",
		NumDocumento:  doc,
		Nombre:        name,
		CodActividad:  strPtrOrNil(client.ActivityCode),
		DescActividad: strPtrOrNil(client.ActivityDescription),
		Direccion:     dir,
		Telefono:      firstNonEmpty(client.Phone, "00000000"),
		Correo:        strPtrOrNil(client.Email),
	}
	return s, doc, name
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (b *Builder) finish(env envelopeDTE, receiverDoc, receiverName string, total decimal.Decimal) (*BuiltDocument, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("serializar payload DTE: %w", err)
	}
	return &BuiltDocument{
		Payload:      payload,
		ReceiverDoc:  receiverDoc,
		ReceiverName: receiverName,
		Total:        total,
	}, nil
}

func (b *Builder) emitterDireccion() direccion {
	return direccion{
		Departamento: b.emitter.Direccion.Departamento,
		Municipio:    b.emitter.Direccion.Municipio,
		Complemento:  b.emitter.Direccion.Complemento,
	}
}

func (b *Builder) clientDireccion(client *entity.Client) direccion {
	return direccion{
		Departamento: firstNonEmpty(client.DepartmentCode, b.emitter.Direccion.Departamento),
		Municipio:    firstNonEmpty(client.MunicipalityCode, b.emitter.Direccion.Municipio),
		Complemento:  b.emitter.Direccion.Complemento,
	}
}

func serviceCode(item *entity.InvoiceItem, fallback string) string {
	if item.ServiceCode != "" {
		return item.ServiceCode
	}
	return fallback
}

func serviceName(item *entity.InvoiceItem) string {
	if item.ServiceName != "" {
		return item.ServiceName
	}
	return "Servicio"
}

func observationsOrDefault(invoice *entity.Invoice, def string) string {
	if obs := strings.TrimSpace(invoice.Observations); obs != "" {
		return obs
	}
	return def
}

func totalLetras(total decimal.Decimal) string {
	return total.Round(2).StringFixed(2) + " DOLARES"
}

func f2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func floatPtr(f float64) *float64 { return &f }

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

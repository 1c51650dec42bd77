package dte

import "github.com/garciaflores/facturador-api/internal/domain/entity"

// DefaultEmitter perfil del emisor de la oficina. Los códigos de
// establecimiento y punto de venta participan en el número de control, así
// que cambiarlos abre una secuencia nueva en el contador.
var DefaultEmitter = entity.Emitter{
	NIT:             "12101304761012",
	NRC:             "1880600",
	Nombre:          "MIRNA ABIGAIL GARCIA FLORES",
	NombreComercial: "Oficina Juridica Garcia Flores",
	CodActividad:    "69100",
	DescActividad:   "Actividades juridicas",
	Direccion: entity.EmitterAddress{
		Departamento: "12",
		Municipio:    "22",
		Complemento:  "24 Calle oriente, col. lopez, #13,san miguel, san miguel",
	},
	Telefono:            "50376523555",
	Correo:              "dtemirnagarcia@gmail.com",
	CodEstable:          "M002",
	CodPuntoVenta:       "P001",
	CodEstableMH:        "M002",
	CodPuntoVentaMH:     "P001",
	TipoEstablecimiento: "02",
}

func emitterPayload(e entity.Emitter) emisor {
	return emisor{
		NIT:                 e.NIT,
		NRC:                 e.NRC,
		Nombre:              e.Nombre,
		CodActividad:        e.CodActividad,
		DescActividad:       e.DescActividad,
		NombreComercial:     e.NombreComercial,
		TipoEstablecimiento: e.TipoEstablecimiento,
		Direccion: direccion{
			Departamento: e.Direccion.Departamento,
			Municipio:    e.Direccion.Municipio,
			Complemento:  e.Direccion.Complemento,
		},
		Telefono:        e.Telefono,
		Correo:          e.Correo,
		CodEstable:      e.CodEstable,
		CodPuntoVenta:   e.CodPuntoVenta,
		CodEstableMH:    e.CodEstableMH,
		CodPuntoVentaMH: e.CodPuntoVentaMH,
	}
}

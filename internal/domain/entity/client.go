package entity

// Client receptor del documento tributario.
type Client struct {
	ID                  int64
	FullName            string
	CompanyName         string
	ClientType          string // CF, CCF o SX
	DUI                 string
	NIT                 string
	NRC                 string
	Phone               string
	Email               string
	Direccion           string
	DepartmentCode      string
	MunicipalityCode    string
	ActivityCode        string
	ActivityDescription string
}

// DisplayName devuelve el nombre a reportar en el DTE.
func (c *Client) DisplayName() string {
	if c.CompanyName != "" {
		return c.CompanyName
	}
	return c.FullName
}

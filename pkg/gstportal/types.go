package gstportal

import "encoding/json"

// Captcha is a freshly issued portal challenge. Cookies must be replayed with
// the answer, they bind the captcha to the portal session.
type Captcha struct {
	Image   string // data:image/png;base64,...
	Cookies string
}

type Address struct {
	Adr string `json:"adr"`
}

type PrincipalAddress struct {
	Adr  string          `json:"adr"`
	Addr json.RawMessage `json:"addr,omitempty"`
}

// TaxpayerDetails is the subset of the taxpayer search response the platform stores.
type TaxpayerDetails struct {
	GSTIN            string           `json:"gstin"`
	LegalName        string           `json:"lgnm"`
	TradeName        string           `json:"tradeNam"`
	Status           string           `json:"sts"`
	Constitution     string           `json:"ctb"`
	RegistrationDate string           `json:"rgdt"`
	PrincipalAddress PrincipalAddress `json:"pradr"`
	NatureOfBusiness []string         `json:"nba"`
}

// GoodsServices keeps the portal payload verbatim.
type GoodsServices struct {
	Goods    json.RawMessage `json:"bzgddtls,omitempty"`
	Services json.RawMessage `json:"bzsdtls,omitempty"`
	Raw      json.RawMessage `json:"-"`
}

type panSearchRequest struct {
	PAN     string `json:"panNO"`
	Captcha string `json:"captcha"`
}

type panSearchResponse struct {
	GSTINResList []struct {
		GSTIN      string `json:"gstin"`
		AuthStatus string `json:"authStatus"`
		StateCode  string `json:"stateCd"`
	} `json:"gstinResList"`
}

type taxpayerRequest struct {
	GSTIN   string `json:"gstin"`
	Captcha string `json:"captcha"`
}

// portalError is what the portal answers with on HTTP 200 when it refuses the input.
type portalError struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
	Error     struct {
		ErrorCode string `json:"error_cd"`
		Message   string `json:"message"`
	} `json:"error"`
}

func (p portalError) code() string {
	if p.ErrorCode != "" {
		return p.ErrorCode
	}
	return p.Error.ErrorCode
}

func (p portalError) message() string {
	if p.Message != "" {
		return p.Message
	}
	return p.Error.Message
}

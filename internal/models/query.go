package models

// Query options accepted by the /users/query endpoint.

type FilterOption string

const (
	FilterEq         FilterOption = "eq"
	FilterGt         FilterOption = "gt"
	FilterLt         FilterOption = "lt"
	FilterContains   FilterOption = "contains"
	FilterStartsWith FilterOption = "startsWith"
)

type Filter struct {
	Field  string       `json:"field"`
	Value  interface{}  `json:"value"`
	Option FilterOption `json:"option"`
}

type Sort struct {
	Field string `json:"field"`
	Order string `json:"order"` // asc or desc
}

type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

type Query struct {
	Filter     []Filter    `json:"filter,omitempty"`
	Sort       *Sort       `json:"sort,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

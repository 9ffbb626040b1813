package schema

import "sapauth/pkg/cell"

// Record is one spreadsheet row keyed by its original header text.
type Record map[string]cell.Value

// UserRow is one SAP user account from the Users sheet.
type UserRow struct {
	User       string     `json:"user"`
	Team       string     `json:"team"`
	ValidTo    cell.Value `json:"validTo"`
	LastLogon  cell.Value `json:"lastLogon"`
	LockReason string     `json:"lockReason"`
}

// UserRoleRow is one role assignment edge. Duplicates are allowed here.
type UserRoleRow struct {
	Role     string `json:"role"`
	UserName string `json:"userName"`
}

// RoleTCodeRow is one transaction code authorization granted by a role.
type RoleTCodeRow struct {
	Role  string `json:"role"`
	TCode string `json:"tCode"`
}

// TransactionLogRow is one logged execution of a transaction code.
type TransactionLogRow struct {
	TCode string     `json:"tCode"`
	Text  string     `json:"text"`
	Date  cell.Value `json:"date"`
}

// Tables holds the four raw row-sets of an authorization export.
// A missing sheet is an empty slice, never an error.
type Tables struct {
	Users           []UserRow           `json:"users"`
	UserRoles       []UserRoleRow       `json:"userRoles"`
	RoleTCodes      []RoleTCodeRow      `json:"roleTCodes"`
	TransactionLogs []TransactionLogRow `json:"transactionLogs"`
}

// Sheet is a parsed sheet before normalization. Headers keep their file order.
type Sheet struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	Records []Record `json:"records"`
}

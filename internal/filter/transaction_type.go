package filter

import "strings"

// TransactionTypes maps transaction type names to their protobuf ids.
var TransactionTypes = map[string]int16{
	"CONTRACTCALL":           7,
	"CONTRACTCREATEINSTANCE": 8,
	"CONTRACTUPDATEINSTANCE": 9,
	"CRYPTOADDLIVEHASH":      10,
	"CRYPTOCREATEACCOUNT":    11,
	"CRYPTODELETE":           12,
	"CRYPTODELETELIVEHASH":   13,
	"CRYPTOTRANSFER":         14,
	"CRYPTOUPDATEACCOUNT":    15,
	"FILEAPPEND":             16,
	"FILECREATE":             17,
	"FILEDELETE":             18,
	"FILEUPDATE":             19,
	"SYSTEMDELETE":           20,
	"SYSTEMUNDELETE":         21,
	"CONTRACTDELETEINSTANCE": 22,
	"FREEZE":                 23,
	"CONSENSUSCREATETOPIC":   24,
	"CONSENSUSUPDATETOPIC":   25,
	"CONSENSUSDELETETOPIC":   26,
	"CONSENSUSSUBMITMESSAGE": 27,
	"UNCHECKEDSUBMIT":        28,
	"TOKENCREATION":          29,
	"TOKENFREEZE":            31,
	"TOKENUNFREEZE":          32,
	"TOKENGRANTKYC":          33,
	"TOKENREVOKEKYC":         34,
	"TOKENDELETION":          35,
	"TOKENUPDATE":            36,
	"TOKENMINT":              37,
	"TOKENBURN":              38,
	"TOKENWIPE":              39,
	"TOKENASSOCIATE":         40,
	"TOKENDISSOCIATE":        41,
	"SCHEDULECREATE":         42,
	"SCHEDULEDELETE":         43,
	"SCHEDULESIGN":           44,
	"TOKENFEESCHEDULEUPDATE": 45,
	"TOKENPAUSE":             46,
	"TOKENUNPAUSE":           47,
	"CRYPTOAPPROVEALLOWANCE": 48,
	"CRYPTODELETEALLOWANCE":  49,
	"ETHEREUMTRANSACTION":    50,
	"NODESTAKEUPDATE":        51,
	"UTILPRNG":               52,
	"TOKENUPDATENFTS":        53,
	"NODECREATE":             54,
	"NODEUPDATE":             55,
	"NODEDELETE":             56,
	"TOKENREJECT":            57,
	"TOKENAIRDROP":           58,
	"TOKENCANCELAIRDROP":     59,
	"TOKENCLAIMAIRDROP":      60,
	"ATOMIC_BATCH":           74,
}

// TransactionTypeID resolves a case-insensitive transaction type name.
func TransactionTypeID(name string) (int16, bool) {
	id, ok := TransactionTypes[strings.ToUpper(name)]
	return id, ok
}

// TransactionTypeName returns the name of a transaction type id, or
// "UNKNOWN".
func TransactionTypeName(id int16) string {
	for name, v := range TransactionTypes {
		if v == id {
			return name
		}
	}
	return "UNKNOWN"
}

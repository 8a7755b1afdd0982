package utils

import "strings"

// ZipArea is the resolved locality for a postal code.
type ZipArea struct {
	City   string
	County string
}

// zipAreas maps the service region's postal codes to their locality.
// The region is central Maryland; every serviced ZIP starts with "2".
var zipAreas = map[string]ZipArea{
	"21201": {City: "Baltimore", County: "Baltimore City"},
	"21202": {City: "Baltimore", County: "Baltimore City"},
	"21203": {City: "Baltimore", County: "Baltimore City"},
	"21204": {City: "Towson", County: "Baltimore County"},
	"21205": {City: "Baltimore", County: "Baltimore City"},
	"21206": {City: "Baltimore", County: "Baltimore County"},
	"21207": {City: "Gwynn Oak", County: "Baltimore County"},
	"21208": {City: "Pikesville", County: "Baltimore County"},
	"21209": {City: "Baltimore", County: "Baltimore City"},
	"21210": {City: "Baltimore", County: "Baltimore City"},
	"21211": {City: "Baltimore", County: "Baltimore City"},
	"21212": {City: "Baltimore", County: "Baltimore City"},
	"21213": {City: "Baltimore", County: "Baltimore City"},
	"21214": {City: "Baltimore", County: "Baltimore City"},
	"21215": {City: "Baltimore", County: "Baltimore City"},
	"21216": {City: "Baltimore", County: "Baltimore City"},
	"21217": {City: "Baltimore", County: "Baltimore City"},
	"21218": {City: "Baltimore", County: "Baltimore City"},
	"21222": {City: "Dundalk", County: "Baltimore County"},
	"21224": {City: "Baltimore", County: "Baltimore City"},
	"21227": {City: "Halethorpe", County: "Baltimore County"},
	"21228": {City: "Catonsville", County: "Baltimore County"},
	"21229": {City: "Baltimore", County: "Baltimore City"},
	"21230": {City: "Baltimore", County: "Baltimore City"},
	"21231": {City: "Baltimore", County: "Baltimore City"},
	"21234": {City: "Parkville", County: "Baltimore County"},
	"21236": {City: "Nottingham", County: "Baltimore County"},
	"21237": {City: "Rosedale", County: "Baltimore County"},
	"21239": {City: "Baltimore", County: "Baltimore City"},
	"21244": {City: "Windsor Mill", County: "Baltimore County"},
	"21401": {City: "Annapolis", County: "Anne Arundel"},
	"21403": {City: "Annapolis", County: "Anne Arundel"},
	"21043": {City: "Ellicott City", County: "Howard"},
	"21044": {City: "Columbia", County: "Howard"},
	"21045": {City: "Columbia", County: "Howard"},
	"21061": {City: "Glen Burnie", County: "Anne Arundel"},
	"21090": {City: "Linthicum Heights", County: "Anne Arundel"},
	"21093": {City: "Lutherville", County: "Baltimore County"},
	"21117": {City: "Owings Mills", County: "Baltimore County"},
	"21122": {City: "Pasadena", County: "Anne Arundel"},
	"21157": {City: "Westminster", County: "Carroll"},
	"21158": {City: "Westminster", County: "Carroll"},
	"21784": {City: "Sykesville", County: "Carroll"},
	"20701": {City: "Annapolis Junction", County: "Howard"},
	"20723": {City: "Laurel", County: "Howard"},
	"20724": {City: "Laurel", County: "Anne Arundel"},
}

// ResolveZip returns the locality for a serviced postal code.
func ResolveZip(zip string) (ZipArea, bool) {
	area, ok := zipAreas[strings.TrimSpace(zip)]
	return area, ok
}

// KnownZip reports whether the postal code is inside the serviced coverage table.
func KnownZip(zip string) bool {
	_, ok := ResolveZip(zip)
	return ok
}

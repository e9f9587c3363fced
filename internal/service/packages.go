package service

// Top-up package catalogs. Packages determine how many diamonds a pending
// top-up carries; the provider-facing price is audit context only.

type CardPackage struct {
	Code     string `json:"code"`
	Diamonds int    `json:"diamonds"`
	PriceRub int    `json:"price_rub"`
}

type StarsPackage struct {
	Code     string `json:"code"`
	Diamonds int    `json:"diamonds"`
	Stars    int    `json:"stars"`
}

var cardPackages = []CardPackage{
	{Code: "card_40", Diamonds: 40, PriceRub: 200},
	{Code: "card_100", Diamonds: 100, PriceRub: 500},
	{Code: "card_200", Diamonds: 200, PriceRub: 900},
	{Code: "card_300", Diamonds: 300, PriceRub: 1499},
	{Code: "card_600", Diamonds: 600, PriceRub: 2999},
}

var starsPackages = []StarsPackage{
	{Code: "stars_40", Diamonds: 40, Stars: 140},
	{Code: "stars_100", Diamonds: 100, Stars: 340},
	{Code: "stars_200", Diamonds: 200, Stars: 650},
}

func ListCardPackages() []CardPackage {
	return append([]CardPackage(nil), cardPackages...)
}

func ListStarsPackages() []StarsPackage {
	return append([]StarsPackage(nil), starsPackages...)
}

func GetCardPackage(code string) (CardPackage, bool) {
	for _, pkg := range cardPackages {
		if pkg.Code == code {
			return pkg, true
		}
	}
	return CardPackage{}, false
}

func GetStarsPackage(code string) (StarsPackage, bool) {
	for _, pkg := range starsPackages {
		if pkg.Code == code {
			return pkg, true
		}
	}
	return StarsPackage{}, false
}

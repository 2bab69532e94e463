package domain

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var brPrinter = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL formata um valor em reais no padrão brasileiro: R$ 10.000,00.
func FormatBRL(v float64) string {
	return "R$ " + brPrinter.Sprint(number.Decimal(v, number.Scale(2)))
}

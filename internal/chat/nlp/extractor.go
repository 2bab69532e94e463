package nlp

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
)

// ============================================================
// Tabelas de números por extenso
// ============================================================

var numberWords = map[string]int{
	"zero": 0, "um": 1, "uma": 1, "dois": 2, "duas": 2, "tres": 3, "quatro": 4,
	"cinco": 5, "seis": 6, "sete": 7, "oito": 8, "nove": 9, "dez": 10,
	"onze": 11, "doze": 12, "treze": 13, "quatorze": 14, "catorze": 14,
	"quinze": 15, "dezesseis": 16, "dezessete": 17, "dezoito": 18, "dezenove": 19,
	"vinte": 20,
}

var multipliers = map[string]float64{
	"mil": 1_000, "k": 1_000,
	"milhao": 1_000_000, "milhoes": 1_000_000, "mi": 1_000_000,
}

// numberWordAlt é a alternância de números por extenso, mais longos primeiro
// ("dezesseis" antes de "dez", "uma" antes de "um").
var numberWordAlt = func() string {
	words := make([]string, 0, len(numberWords))
	for w := range numberWords {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	return strings.Join(words, "|")
}()

const multiplierAlt = `milhoes|milhao|mil|mi|k`

// ============================================================
// Valores monetários
// ============================================================

var (
	leadIns = regexp.MustCompile(`\b(?:minha renda e|minha renda|ganho|recebo|faco|tenho|eh de|e de|sao|` +
		`cerca de|aproximadamente|perto de|por volta de|mais ou menos|uns|umas|tipo|` +
		`algo em torno de|em media|na faixa de|entre|quase|beirando|chegando a|chegando em|` +
		`por mes|mensalmente|mensais|mensal|ao mes)\b`)
	currencyWords = regexp.MustCompile(`r\$|\breais\b|\breal\b`)

	brFull       = regexp.MustCompile(`\b(\d{1,3}(?:\.\d{3})+),(\d{2})`)
	brThousands  = regexp.MustCompile(`\b(\d{1,3}(?:\.\d{3})+)`)
	decimalComma = regexp.MustCompile(`(\d+),(\d{1,2})`)
	andAHalf     = regexp.MustCompile(`(\d+)\s*(?:k|mil)\s*e\s*meio`)
	withSuffix   = regexp.MustCompile(`(\d{1,3}(?:\.\d{3})+|\d+(?:[.,]\d+)?)\s*(` + multiplierAlt + `)\b`)
	wordSuffix   = regexp.MustCompile(`\b(` + numberWordAlt + `)\s+(` + multiplierAlt + `)\b`)
	bareNumber   = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	bareWord     = regexp.MustCompile(`\b(` + numberWordAlt + `)\b`)

	followingMultiplier = regexp.MustCompile(`^\s*(?:` + multiplierAlt + `)\b`)
	thousandsOnly       = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
)

// ExtractMonetaryValue converte texto livre em um valor em reais.
//
// Depois de remover expressões de abertura ("minha renda é", "cerca de",
// "por mês") e símbolos de moeda, tenta em ordem:
//  1. 10.000,00 (também 1.000.000,00)
//  2. 10.000 (milhar sem centavos)
//  3. 2500,50 (vírgula decimal)
//  4. "5k e meio" → 5500
//  5. "6k", "2.5 mil", "1 milhão"
//  6. "dez mil"
//  7. número solto
//  8. número por extenso solto
//
// O primeiro padrão que casar vence.
func ExtractMonetaryValue(s string) (float64, bool) {
	t := NormalizeText(s)
	t = leadIns.ReplaceAllString(t, " ")
	t = currencyWords.ReplaceAllString(t, " ")
	t = strings.Join(strings.Fields(t), " ")
	if t == "" {
		return 0, false
	}

	if m := firstNotMultiplied(t, brFull); m != nil {
		return parseFloat(strings.ReplaceAll(m[1], ".", "") + "." + m[2])
	}
	if m := firstNotMultiplied(t, brThousands); m != nil {
		return parseFloat(strings.ReplaceAll(m[1], ".", ""))
	}
	if m := firstNotMultiplied(t, decimalComma); m != nil {
		return parseFloat(m[1] + "." + m[2])
	}
	if m := andAHalf.FindStringSubmatch(t); m != nil {
		n, ok := parseFloat(m[1])
		return n*1000 + 500, ok
	}
	if m := withSuffix.FindStringSubmatch(t); m != nil {
		num := m[1]
		if thousandsOnly.MatchString(num) {
			// "1.500 mil": ponto de milhar, não decimal.
			num = strings.ReplaceAll(num, ".", "")
		}
		n, ok := parseFloat(strings.ReplaceAll(num, ",", "."))
		return n * multipliers[m[2]], ok
	}
	if m := wordSuffix.FindStringSubmatch(t); m != nil {
		return float64(numberWords[m[1]]) * multipliers[m[2]], true
	}
	if m := bareNumber.FindString(t); m != "" {
		return parseFloat(strings.ReplaceAll(m, ",", "."))
	}
	if m := bareWord.FindStringSubmatch(t); m != nil {
		return float64(numberWords[m[1]]), true
	}
	return 0, false
}

// firstNotMultiplied devolve o primeiro casamento que não seja seguido de
// dígito nem de um multiplicador ("2,5 mil" é tratado pelo padrão de sufixo).
func firstNotMultiplied(t string, re *regexp.Regexp) []string {
	for _, loc := range re.FindAllStringSubmatchIndex(t, -1) {
		rest := t[loc[1]:]
		if rest != "" && rest[0] >= '0' && rest[0] <= '9' {
			continue
		}
		if followingMultiplier.MatchString(rest) {
			continue
		}
		m := make([]string, len(loc)/2)
		for i := range m {
			if loc[2*i] >= 0 {
				m[i] = t[loc[2*i]:loc[2*i+1]]
			}
		}
		return m
	}
	return nil
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ============================================================
// Inteiros
// ============================================================

var (
	zeroPhrases = []string{
		"nenhum", "nenhuma", "zero", "nao tenho", "nao possuo", "nada", "ninguem",
		"sem dependentes", "sem dependente", "sem filhos", "sem filho",
	}
	digits      = regexp.MustCompile(`\d+`)
)

// ExtractInteger devolve 0 para "nenhum", "não tenho", "ninguém"…; senão o
// primeiro número em dígitos; senão o primeiro número por extenso (0–20).
func ExtractInteger(s string) (int, bool) {
	p := newPhraseText(s)
	if p.hasAny(zeroPhrases) {
		return 0, true
	}
	if m := digits.FindString(string(p)); m != "" {
		n, err := strconv.Atoi(m)
		return n, err == nil
	}
	if m := bareWord.FindStringSubmatch(string(p)); m != nil {
		return numberWords[m[1]], true
	}
	return 0, false
}

// ============================================================
// Tipo de emprego
// ============================================================

type employmentSynonyms struct {
	kind     domain.EmploymentType
	synonyms []string
}

// Desempregado primeiro: "não trabalho" não pode cair em outra categoria.
var employmentTable = []employmentSynonyms{
	{domain.EmploymentUnemployed, []string{
		"desempregado", "desempregada", "sem emprego", "sem trabalho", "procurando emprego",
		"desocupado", "nao trabalho", "estou parado", "parado", "afastado", "sem renda fixa",
	}},
	{domain.EmploymentPublic, []string{
		"servidor publico", "funcionario publico", "setor publico", "concursado", "governo",
		"servidor", "municipal", "federal", "prefeitura", "publico",
	}},
	{domain.EmploymentSelfEmployed, []string{
		"autonomo", "autonoma", "por conta propria", "conta propria", "freelancer", "freela",
		"profissional liberal", "liberal", "independente", "prestador de servico", "pj",
		"pessoa juridica", "cnpj",
	}},
	{domain.EmploymentMEI, []string{
		"mei", "microempreendedor", "micro empreendedor", "empreendedor individual", "pequeno negocio",
	}},
	{domain.EmploymentFormal, []string{
		"empresa privada", "setor privado", "formal",
	}},
	{domain.EmploymentCLT, []string{
		"clt", "carteira assinada", "carteira", "registrado", "empregado", "contratado",
		"assalariado", "trabalhador formal", "regime clt", "emprego fixo", "funcionario",
	}},
}

// ExtractEmploymentType classifica o texto em uma das seis categorias.
func ExtractEmploymentType(s string) (domain.EmploymentType, bool) {
	p := newPhraseText(s)
	for _, e := range employmentTable {
		if p.hasAny(e.synonyms) {
			return e.kind, true
		}
	}
	return "", false
}

// ============================================================
// Moedas
// ============================================================

type currencySynonyms struct {
	code     string
	synonyms []string
}

// Sinônimos específicos ("dolar canadense") antes dos genéricos ("dolar").
var currencyTable = []currencySynonyms{
	{"CAD", []string{"cad", "dolar canadense", "dolares canadenses"}},
	{"AUD", []string{"aud", "dolar australiano", "dolares australianos"}},
	{"MXN", []string{"mxn", "peso mexicano", "pesos mexicanos"}},
	{"ARS", []string{"ars", "peso argentino", "pesos argentinos"}},
	{"CHF", []string{"chf", "franco suico", "francos suicos"}},
	{"USD", []string{"usd", "dolar", "dollar", "dolares", "dolar americano"}},
	{"EUR", []string{"eur", "euro", "euros"}},
	{"GBP", []string{"gbp", "libra", "libras", "esterlina", "pound"}},
	{"JPY", []string{"jpy", "iene", "ienes", "yen"}},
	{"CNY", []string{"cny", "yuan", "renminbi"}},
	{"BRL", []string{"brl", "real", "reais"}},
}

var isoCode = regexp.MustCompile(`\b[A-Z]{3}\b`)

// KnownCurrency reports whether code is one of the supported currencies.
func KnownCurrency(code string) bool {
	for _, c := range currencyTable {
		if c.code == code {
			return true
		}
	}
	return false
}

// SupportedCurrencies lista os códigos aceitos.
func SupportedCurrencies() []string {
	out := make([]string, 0, len(currencyTable))
	for _, c := range currencyTable {
		out = append(out, c.code)
	}
	sort.Strings(out)
	return out
}

// ExtractCurrencyCode devolve a primeira moeda citada no texto.
func ExtractCurrencyCode(s string) (string, bool) {
	codes := ExtractCurrencyCodes(s)
	if len(codes) == 0 {
		return "", false
	}
	return codes[0], true
}

// ExtractCurrencyCodes devolve as moedas citadas, na ordem em que aparecem
// ("dólar para euro" → [USD EUR]). Sinônimos por nome primeiro; se nenhum
// casar, procura códigos de três letras maiúsculas no texto original.
func ExtractCurrencyCodes(s string) []string {
	type hit struct {
		code string
		pos  int
	}
	text := string(newPhraseText(s))
	var hits []hit
	seen := map[string]bool{}

	for _, c := range currencyTable {
		for _, syn := range c.synonyms {
			for {
				i := strings.Index(text, " "+syn+" ")
				if i < 0 {
					break
				}
				if !seen[c.code] {
					hits = append(hits, hit{c.code, i})
					seen[c.code] = true
				}
				// Apaga o trecho para que "dolar" não case de novo em "dolar canadense".
				text = text[:i+1] + strings.Repeat("_", len(syn)) + text[i+1+len(syn):]
			}
		}
	}

	if len(hits) == 0 {
		for _, loc := range isoCode.FindAllStringIndex(s, -1) {
			code := s[loc[0]:loc[1]]
			if KnownCurrency(code) && !seen[code] {
				hits = append(hits, hit{code, loc[0]})
				seen[code] = true
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.code
	}
	return out
}

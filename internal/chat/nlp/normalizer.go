// Package nlp implementa o parsing determinístico de texto livre em português.
//
// ============================================================
// NLP — normalização, extração de valores e slots
// ============================================================
//
// Não há modelo estatístico aqui: tudo é dicionário + regex sobre o texto
// normalizado (minúsculo, sem acentos, espaços colapsados). As funções são
// puras e seguras para uso concorrente.
//
// Camadas:
//   - normalizer.go: NormalizeText, ExtractCPF, ParseBoolean, ParseDate
//   - extractor.go:  valores monetários, inteiros, emprego, moeda
//   - parser.go:     um Parse<Slot> por campo, com limites de domínio
//   - clarify.go:    mensagens de esclarecimento por campo
package nlp

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveAccents decompõe o texto (NFKD) e descarta as marcas combinantes.
// "Não" → "Nao", "cotação" → "cotacao".
func RemoveAccents(s string) string {
	// transform.Chain guarda estado: um por chamada.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeText deixa o texto em minúsculas, sem acentos e com espaços colapsados.
// É idempotente: NormalizeText(NormalizeText(s)) == NormalizeText(s).
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(RemoveAccents(strings.ToLower(s))), " ")
}

// ExtractCPF remove tudo que não é dígito e devolve os 11 primeiros dígitos.
// Aceita CPF com pontuação, espaços ou no meio de uma frase.
func ExtractCPF(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 11 {
		return "", false
	}
	return digits[:11], true
}

// ============================================================
// Casamento de frases por palavra inteira
// ============================================================

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// phraseText é o texto normalizado reduzido a palavras separadas por um espaço,
// com espaço nas pontas, pronto para casar frases por palavra inteira.
type phraseText string

func newPhraseText(s string) phraseText {
	words := strings.TrimSpace(nonWord.ReplaceAllString(NormalizeText(s), " "))
	return phraseText(" " + words + " ")
}

// has reports whether phrase appears as whole words ("mei" não casa "meio").
func (p phraseText) has(phrase string) bool {
	return strings.Contains(string(p), " "+phrase+" ")
}

// index devolve a posição da frase ou -1.
func (p phraseText) index(phrase string) int {
	return strings.Index(string(p), " "+phrase+" ")
}

func (p phraseText) hasAny(phrases []string) bool {
	for _, ph := range phrases {
		if p.has(ph) {
			return true
		}
	}
	return false
}

// ============================================================
// ParseBoolean — sim / não / não sei
// ============================================================

// BoolAnswer é o resultado de três vias de ParseBoolean.
type BoolAnswer int

const (
	Unknown BoolAnswer = iota
	Yes
	No
)

func (b BoolAnswer) String() string {
	switch b {
	case Yes:
		return "yes"
	case No:
		return "no"
	}
	return "unknown"
}

var (
	uncertaintyPhrases = []string{
		"nao sei", "nao lembro", "nao tenho certeza", "talvez", "acho que", "nao me lembro",
	}

	negativePhrases = []string{
		"nao", "falso", "false", "negativo", "nunca", "nem pensar", "de jeito nenhum",
		"nao tenho", "nenhum", "nenhuma", "zero", "nada", "sem divida", "sem dividas",
		"estou limpo", "limpo", "tudo pago", "quitado", "nao possuo", "nao ha",
	}

	affirmativePhrases = []string{
		"sim", "yes", "verdade", "verdadeiro", "true", "com certeza", "claro", "isso",
		"exato", "exatamente", "correto", "tenho", "possuo", "ha", "infelizmente sim",
		"sim tenho", "tem sim", "tenho sim", "tenho divida",
	}

	negationTokens = []string{"nao", "sem", "nenhum", "nunca"}
)

// ParseBoolean interpreta uma resposta sim/não em português.
//
// Ordem: incerteza → Unknown; frase negativa → No; frase afirmativa sem
// token de negação → Yes; raízes "nao"/"sem" → No e "sim"/"tenho" → Yes;
// "s" sozinho → Yes. Nada casou → Unknown (o chamador pergunta de novo).
func ParseBoolean(s string) BoolAnswer {
	n := NormalizeText(s)
	if n == "" {
		return Unknown
	}
	p := newPhraseText(n)

	if p.hasAny(uncertaintyPhrases) {
		return Unknown
	}
	if p.hasAny(negativePhrases) {
		return No
	}
	if p.hasAny(affirmativePhrases) && !p.hasAny(negationTokens) {
		return Yes
	}

	switch {
	case strings.Contains(n, "nao"), strings.Contains(n, "sem"):
		return No
	case strings.Contains(n, "sim"), strings.Contains(n, "tenho"):
		return Yes
	case strings.TrimSpace(string(p)) == "s":
		return Yes
	}
	return Unknown
}

// ============================================================
// ParseDate — datas numéricas e por extenso
// ============================================================

var (
	numericDate = regexp.MustCompile(`(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{2,4})`)

	// Nomes completos antes das abreviações.
	monthNames = map[string]int{
		"janeiro": 1, "fevereiro": 2, "marco": 3, "abril": 4, "maio": 5, "junho": 6,
		"julho": 7, "agosto": 8, "setembro": 9, "outubro": 10, "novembro": 11, "dezembro": 12,
		"jan": 1, "fev": 2, "mar": 3, "abr": 4, "mai": 5, "jun": 6,
		"jul": 7, "ago": 8, "set": 9, "out": 10, "nov": 11, "dez": 12,
	}

	writtenDate = regexp.MustCompile(`(\d{1,2})\s*(?:de\s*)?(` +
		`janeiro|fevereiro|marco|abril|maio|junho|julho|agosto|setembro|outubro|novembro|dezembro|` +
		`jan|fev|mar|abr|mai|jun|jul|ago|set|out|nov|dez` +
		`)\s*(?:de\s*)?(\d{2,4})`)
)

// ParseDate extrai (dia, mês, ano) de "15/05/1990", "15-5-90" ou
// "15 de maio de 1990". Anos com dois dígitos: >30 → 19xx, ≤30 → 20xx.
// Não valida o calendário; veja ValidateBirthdate.
func ParseDate(s string) (day, month, year int, ok bool) {
	n := NormalizeText(s)

	if m := numericDate.FindStringSubmatch(n); m != nil {
		day, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		year, _ = strconv.Atoi(m[3])
		return day, month, expandYear(year), true
	}

	if m := writtenDate.FindStringSubmatch(n); m != nil {
		day, _ = strconv.Atoi(m[1])
		month = monthNames[m[2]]
		year, _ = strconv.Atoi(m[3])
		return day, month, expandYear(year), true
	}

	return 0, 0, 0, false
}

func expandYear(y int) int {
	if y >= 100 {
		return y
	}
	if y > 30 {
		return 1900 + y
	}
	return 2000 + y
}

// ValidateBirthdate confere o calendário: ano em [1900, ano atual], mês em
// [1, 12] e dia existente no mês. Em caso de erro devolve a mensagem para o
// usuário; string vazia significa data válida.
func ValidateBirthdate(day, month, year int, now time.Time) (time.Time, string) {
	current := now.Year()
	if year < 1900 || year > current {
		return time.Time{}, "O ano parece incorreto. Deve estar entre 1900 e " + strconv.Itoa(current) + "."
	}
	if month < 1 || month > 12 {
		return time.Time{}, "O mês deve estar entre 1 e 12."
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if day < 1 || d.Day() != day || int(d.Month()) != month {
		return time.Time{}, "Data inválida. Verifique se o dia existe no mês informado."
	}
	return d, ""
}

// Words devolve o texto normalizado só com letras e dígitos separados por
// um espaço: "Qual o meu limite?" → "qual o meu limite".
func Words(s string) string {
	return strings.TrimSpace(string(newPhraseText(s)))
}

// HasAnyPhrase reports whether any of the phrases occurs in s as whole
// words, after normalization. Phrases must already be normalized.
func HasAnyPhrase(s string, phrases []string) bool {
	return newPhraseText(s).hasAny(phrases)
}

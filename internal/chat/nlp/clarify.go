package nlp

// Field identifica um slot coletado pelo diálogo.
type Field string

const (
	FieldCPF        Field = "cpf"
	FieldBirthdate  Field = "birthdate"
	FieldIncome     Field = "income"
	FieldExpenses   Field = "expenses"
	FieldEmployment Field = "employment_type"
	FieldDependents Field = "dependents"
	FieldDebts      Field = "debts"
	FieldCurrency   Field = "currency"
	FieldLimitValue Field = "limit_value"
)

var clarifications = map[Field]string{
	FieldCPF:        "Desculpe, não consegui identificar seu CPF. Por favor, digite os 11 números.",
	FieldBirthdate:  "Não consegui entender a data. Informe no formato dia/mês/ano, ex: 15/05/1990",
	FieldIncome:     "Não entendi o valor da sua renda. Informe sua renda, ex: 5000, 5k, ou cinco mil.",
	FieldExpenses:   "Não entendi o valor das despesas. Qual o valor aproximado, ex: 2000 ou 2k?",
	FieldEmployment: "Qual seu tipo de trabalho? CLT, autônomo, MEI, servidor público ou desempregado?",
	FieldDependents: "Quantas pessoas dependem financeiramente de você? Se nenhuma, diga 'zero'.",
	FieldDebts:      "Você possui alguma dívida em aberto? Responda sim ou não.",
	FieldCurrency:   "Informe o código da moeda: USD, EUR, GBP, JPY ou ARS.",
	FieldLimitValue: "Qual valor de limite deseja? Ex: 10000, 10k, ou dez mil.",
}

// Respostas para quem disse "não sei" / "como assim?".
var uncertainClarifications = map[Field]string{
	FieldIncome: "Tudo bem! Um valor aproximado já ajuda. Quanto você recebe por mês, " +
		"mais ou menos? Ex: 5000, 5k, ou cinco mil.",
	FieldExpenses: "Sem problemas! Some aluguel, contas e alimentação e me diga um valor aproximado, ex: 2000 ou 2k.",
	FieldEmployment: "Sem problemas! Escolha a opção mais próxima: CLT (carteira assinada), Autônomo, " +
		"MEI, Servidor Público, Empresa privada ou Desempregado.",
	FieldDependents: "Dependentes são pessoas que dependem financeiramente de você, como filhos ou " +
		"cônjuge sem renda. Quantas são? Se nenhuma, diga 'zero'.",
	FieldDebts: "Pense em cartão de crédito atrasado, empréstimo ou financiamento em aberto. " +
		"Você possui alguma dívida? Responda sim ou não.",
	FieldLimitValue: "Tudo bem! Me diga um valor aproximado de limite, ex: 10000, 10k, ou dez mil.",
}

// Clarification devolve a mensagem de re-pergunta para o campo. Com
// uncertain=true, usa a versão que explica o que está sendo pedido.
func Clarification(field Field, uncertain bool) string {
	if uncertain {
		if msg, ok := uncertainClarifications[field]; ok {
			return msg
		}
	}
	if msg, ok := clarifications[field]; ok {
		return msg
	}
	return "Não entendi. Pode repetir?"
}

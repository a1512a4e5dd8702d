package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Identity is the resolved caller of a request.
type Identity struct {
	ID         string `json:"identity_id"`
	Privileged bool   `json:"is_privileged"`
}

// Client is the identity-linked customer profile.
type Client struct {
	ID         int64     `json:"id"`
	IdentityID string    `json:"identity_id"`
	Name       string    `json:"nome"`
	CPF        string    `json:"cpf"`
	BirthDate  time.Time `json:"data_nascimento"`
	Phone      string    `json:"telefone"`
	Address    string    `json:"endereco"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type AccountKind string

const (
	AccountChecking AccountKind = "CC"
	AccountSavings  AccountKind = "CP"
	AccountPayroll  AccountKind = "CS"
)

func (k AccountKind) Valid() bool {
	switch k {
	case AccountChecking, AccountSavings, AccountPayroll:
		return true
	}
	return false
}

// Account holds a client's balance. Balance only changes through settlement.
type Account struct {
	ID        int64           `json:"id"`
	ClientID  int64           `json:"cliente_id"`
	Number    string          `json:"numero_conta"`
	Branch    string          `json:"agencia"`
	Kind      AccountKind     `json:"tipo_conta"`
	Balance   decimal.Decimal `json:"saldo"`
	Active    bool            `json:"ativa"`
	OpenedOn  time.Time       `json:"data_abertura"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type TransactionKind string

const (
	KindDeposit    TransactionKind = "DEP"
	KindWithdrawal TransactionKind = "SAQ"
	KindTransfer   TransactionKind = "TRA"
	KindPayment    TransactionKind = "PAG"
)

func (k TransactionKind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindTransfer, KindPayment:
		return true
	}
	return false
}

// Debits reports whether the kind takes money out of the origin account.
func (k TransactionKind) Debits() bool {
	return k == KindWithdrawal || k == KindTransfer || k == KindPayment
}

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PEN"
	StatusSettled   TransactionStatus = "CON"
	StatusCancelled TransactionStatus = "CAN"
	StatusRejected  TransactionStatus = "REJ"
)

// Transaction is the record of one money movement.
// Once settled, amount and account references never change.
type Transaction struct {
	ID                   uuid.UUID         `json:"id_transacao"`
	OriginAccountID      int64             `json:"conta_origem_id"`
	DestinationAccountID *int64            `json:"conta_destino_id"`
	Kind                 TransactionKind   `json:"tipo"`
	Amount               decimal.Decimal   `json:"valor"`
	Description          string            `json:"descricao"`
	Status               TransactionStatus `json:"status"`
	OccurredAt           time.Time         `json:"data_transacao"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

type LoanStatus string

const (
	LoanRequested LoanStatus = "SOL"
	LoanApproved  LoanStatus = "APR"
	LoanDenied    LoanStatus = "NEG"
	LoanPaid      LoanStatus = "PAG"
	LoanOverdue   LoanStatus = "ATR"
)

// Loan tracks a credit request through approval.
// ApprovedAmount, ApprovedOn, DueOn and MonthlyInstallment are either all set or all empty.
type Loan struct {
	ID                 int64               `json:"id"`
	ClientID           int64               `json:"cliente_id"`
	RequestedAmount    decimal.Decimal     `json:"valor_solicitado"`
	ApprovedAmount     decimal.NullDecimal `json:"valor_aprovado"`
	InterestRate       decimal.Decimal     `json:"taxa_juros"`
	TermMonths         int                 `json:"prazo_meses"`
	MonthlyInstallment decimal.NullDecimal `json:"parcela_mensal"`
	RequestedOn        time.Time           `json:"data_solicitacao"`
	ApprovedOn         *time.Time          `json:"data_aprovacao"`
	DueOn              *time.Time          `json:"data_vencimento"`
	Status             LoanStatus          `json:"status"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

type InvestmentKind string

const (
	InvestmentCDB    InvestmentKind = "CDB"
	InvestmentLCI    InvestmentKind = "LCI"
	InvestmentLCA    InvestmentKind = "LCA"
	InvestmentFund   InvestmentKind = "FUN"
	InvestmentShares InvestmentKind = "ACO"
)

var investmentLabels = map[InvestmentKind]string{
	InvestmentCDB:    "CDB",
	InvestmentLCI:    "LCI",
	InvestmentLCA:    "LCA",
	InvestmentFund:   "Fundos",
	InvestmentShares: "Ações",
}

func (k InvestmentKind) Valid() bool {
	_, ok := investmentLabels[k]
	return ok
}

// Label is the display name of the instrument.
func (k InvestmentKind) Label() string {
	return investmentLabels[k]
}

// Investment is a client's application in an instrument, funded from an account.
type Investment struct {
	ID                   int64           `json:"id"`
	ClientID             int64           `json:"cliente_id"`
	Kind                 InvestmentKind  `json:"tipo"`
	AppliedAmount        decimal.Decimal `json:"valor_aplicado"`
	AnnualYield          decimal.Decimal `json:"rentabilidade"`
	AppliedOn            time.Time       `json:"data_aplicacao"`
	MaturesOn            *time.Time      `json:"data_vencimento"`
	Active               bool            `json:"ativo"`
	FundingTransactionID uuid.UUID       `json:"transacao_id"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// IdempotencyRecord holds the state of a request key.
type IdempotencyRecord struct {
	Key           string
	RequestHash   string
	Status        string
	TransactionID uuid.UUID
}

const (
	IdempotencyInProgress = "in_progress"
	IdempotencyCompleted  = "completed"
)

package model

// InvoiceTypeCode is the UNTDID 1001 document type code
type InvoiceTypeCode int

const (
	TypeInvoice           InvoiceTypeCode = 380
	TypeCreditNote        InvoiceTypeCode = 381
	TypeDebitNote         InvoiceTypeCode = 383
	TypeCorrectedInvoice  InvoiceTypeCode = 384
	TypePrepaymentInvoice InvoiceTypeCode = 386
	TypeSelfBilledInvoice InvoiceTypeCode = 389
)

// Valid reports whether the code is one of the accepted document types
func (t InvoiceTypeCode) Valid() bool {
	switch t {
	case TypeInvoice, TypeCreditNote, TypeDebitNote, TypeCorrectedInvoice,
		TypePrepaymentInvoice, TypeSelfBilledInvoice:
		return true
	}
	return false
}

// RequiresPrecedingReference reports whether the type must reference the
// invoice it corrects (credit notes and corrected invoices)
func (t InvoiceTypeCode) RequiresPrecedingReference() bool {
	return t == TypeCreditNote || t == TypeCorrectedInvoice
}

// IsCreditNote reports whether the UBL rendition uses the CreditNote root
func (t InvoiceTypeCode) IsCreditNote() bool {
	return t == TypeCreditNote || t == TypeCorrectedInvoice
}

// OperationCategory classifies the nature of the operation.
// Mandatory on every invoice since September 2026.
type OperationCategory string

const (
	OperationDelivery OperationCategory = "delivery"
	OperationService  OperationCategory = "service"
	OperationMixed    OperationCategory = "mixed"
)

// Valid reports whether the category is one of the three reform values
func (c OperationCategory) Valid() bool {
	switch c {
	case OperationDelivery, OperationService, OperationMixed:
		return true
	}
	return false
}

// FrenchLabel returns the label carried in the invoice note with
// subject code AAI
func (c OperationCategory) FrenchLabel() string {
	switch c {
	case OperationDelivery:
		return "Livraison de biens"
	case OperationService:
		return "Prestation de services"
	case OperationMixed:
		return "Livraison de biens et prestation de services"
	}
	return ""
}

// VATCategory is the UNTDID 5305 duty/tax category code
type VATCategory string

const (
	VATStandard        VATCategory = "S"  // standard rate
	VATZeroRated       VATCategory = "Z"  // zero rated
	VATExempt          VATCategory = "E"  // exempt
	VATReverseCharge   VATCategory = "AE" // buyer accounts for the VAT
	VATIntraCommunity  VATCategory = "K"  // intra-community supply
	VATExport          VATCategory = "G"  // export outside the EU
	VATOutOfScope      VATCategory = "O"  // not subject to VAT
	VATCanaryIslands   VATCategory = "L"
	VATCeutaAndMelilla VATCategory = "M"
)

// Valid reports whether the category is a known code
func (c VATCategory) Valid() bool {
	switch c {
	case VATStandard, VATZeroRated, VATExempt, VATReverseCharge,
		VATIntraCommunity, VATExport, VATOutOfScope,
		VATCanaryIslands, VATCeutaAndMelilla:
		return true
	}
	return false
}

// ZeroTax reports whether the category never carries seller-side tax
func (c VATCategory) ZeroTax() bool {
	switch c {
	case VATZeroRated, VATExempt, VATReverseCharge, VATIntraCommunity,
		VATExport, VATOutOfScope:
		return true
	}
	return false
}

// RequiresExemptionReason reports whether an exemption reason must
// accompany the category
func (c VATCategory) RequiresExemptionReason() bool {
	switch c {
	case VATExempt, VATReverseCharge, VATIntraCommunity, VATExport:
		return true
	}
	return false
}

// UnitOfMeasure is the UN/ECE Recommendation 20 unit code
type UnitOfMeasure string

const (
	UnitPiece       UnitOfMeasure = "C62"
	UnitHour        UnitOfMeasure = "HUR"
	UnitDay         UnitOfMeasure = "DAY"
	UnitMonth       UnitOfMeasure = "MON"
	UnitYear        UnitOfMeasure = "ANN"
	UnitKilogram    UnitOfMeasure = "KGM"
	UnitMetre       UnitOfMeasure = "MTR"
	UnitSquareMetre UnitOfMeasure = "MTK"
	UnitLitre       UnitOfMeasure = "LTR"
	UnitPage        UnitOfMeasure = "XPP"
	UnitSet         UnitOfMeasure = "SET"
	UnitPair        UnitOfMeasure = "PR"
)

// PaymentMeansCode is the UNTDID 4461 payment means code
type PaymentMeansCode string

const (
	PaymentCash            PaymentMeansCode = "10"
	PaymentCheque          PaymentMeansCode = "20"
	PaymentCreditTransfer  PaymentMeansCode = "30"
	PaymentToBankAccount   PaymentMeansCode = "42"
	PaymentBankCard        PaymentMeansCode = "48"
	PaymentDirectDebit     PaymentMeansCode = "49"
	PaymentSEPATransfer    PaymentMeansCode = "58"
	PaymentSEPADirectDebit PaymentMeansCode = "59"
)

// Currency is the ISO 4217 currency code
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencyCHF Currency = "CHF"
)

// Valid reports whether the currency is supported
func (c Currency) Valid() bool {
	switch c {
	case CurrencyEUR, CurrencyUSD, CurrencyGBP, CurrencyCHF:
		return true
	}
	return false
}

// Profile is the Factur-X conformance level, least to most detailed
type Profile string

const (
	ProfileMinimum  Profile = "minimum"
	ProfileBasicWL  Profile = "basicwl"
	ProfileBasic    Profile = "basic"
	ProfileEN16931  Profile = "en16931"
	ProfileExtended Profile = "extended"
)

// Valid reports whether the profile is one of the five levels
func (p Profile) Valid() bool {
	switch p {
	case ProfileMinimum, ProfileBasicWL, ProfileBasic, ProfileEN16931, ProfileExtended:
		return true
	}
	return false
}

// SpecificationID returns the guideline identifier emitted in
// ExchangedDocumentContext
func (p Profile) SpecificationID() string {
	switch p {
	case ProfileMinimum:
		return "urn:factur-x.eu:1p0:minimum"
	case ProfileBasicWL:
		return "urn:factur-x.eu:1p0:basicwl"
	case ProfileBasic:
		return "urn:cen.eu:en16931:2017#compliant#urn:factur-x.eu:1p0:basic"
	case ProfileEN16931:
		return "urn:cen.eu:en16931:2017"
	case ProfileExtended:
		return "urn:cen.eu:en16931:2017#conformant#urn:factur-x.eu:1p0:extended"
	}
	return ""
}

// ProfileFromSpecificationID resolves a guideline identifier back to
// its profile. The second return is false for unknown identifiers.
func ProfileFromSpecificationID(urn string) (Profile, bool) {
	for _, p := range []Profile{ProfileMinimum, ProfileBasicWL, ProfileBasic, ProfileEN16931, ProfileExtended} {
		if p.SpecificationID() == urn {
			return p, true
		}
	}
	return "", false
}

// IncludesLines reports whether the profile carries line items.
// Minimum and basic-without-lines stop at document totals.
func (p Profile) IncludesLines() bool {
	return p != ProfileMinimum && p != ProfileBasicWL
}

// Level orders profiles by increasing structural detail
func (p Profile) Level() int {
	switch p {
	case ProfileMinimum:
		return 0
	case ProfileBasicWL:
		return 1
	case ProfileBasic:
		return 2
	case ProfileEN16931:
		return 3
	case ProfileExtended:
		return 4
	}
	return -1
}

// MeetsRegulatoryFloor reports whether the profile reaches the level
// required for acceptance under the mandate. Lower profiles remain
// structurally valid but materially incomplete.
func (p Profile) MeetsRegulatoryFloor() bool {
	return p.Level() >= ProfileEN16931.Level()
}

// Format identifies a document rendition handled by the engine
type Format string

const (
	FormatCII     Format = "cii"
	FormatUBL     Format = "ubl"
	FormatFacturX Format = "facturx"
	FormatCDAR    Format = "cdar"
	FormatUnknown Format = "unknown"
)

// InvoiceStatus is a regulator lifecycle status code
type InvoiceStatus int

const (
	StatusDeposited         InvoiceStatus = 200 // Déposée
	StatusEmitted           InvoiceStatus = 201 // Émise par la plateforme
	StatusReceived          InvoiceStatus = 202 // Reçue par la plateforme
	StatusMadeAvailable     InvoiceStatus = 203 // Mise à disposition
	StatusTakenInCharge     InvoiceStatus = 204 // Prise en charge
	StatusApproved          InvoiceStatus = 205 // Approuvée
	StatusPartiallyApproved InvoiceStatus = 206 // Approuvée partiellement
	StatusDisputed          InvoiceStatus = 207 // En litige
	StatusSuspended         InvoiceStatus = 208 // Suspendue
	StatusRejectedEmission  InvoiceStatus = 209 // Rejetée à l'émission
	StatusRefused           InvoiceStatus = 210 // Refusée
	StatusPaymentSent       InvoiceStatus = 211 // Paiement transmis
	StatusRejectedReception InvoiceStatus = 212 // Rejetée à la réception
	StatusCollected         InvoiceStatus = 213 // Encaissée
	StatusCompleted         InvoiceStatus = 214 // Complétée
)

// AllStatuses lists every lifecycle status in code order
var AllStatuses = []InvoiceStatus{
	StatusDeposited, StatusEmitted, StatusReceived, StatusMadeAvailable,
	StatusTakenInCharge, StatusApproved, StatusPartiallyApproved,
	StatusDisputed, StatusSuspended, StatusRejectedEmission, StatusRefused,
	StatusPaymentSent, StatusRejectedReception, StatusCollected,
	StatusCompleted,
}

// Valid reports whether the code is a known lifecycle status
func (s InvoiceStatus) Valid() bool {
	return s >= StatusDeposited && s <= StatusCompleted
}

// Label returns the French regulatory label for the status
func (s InvoiceStatus) Label() string {
	switch s {
	case StatusDeposited:
		return "Déposée"
	case StatusEmitted:
		return "Émise par la plateforme"
	case StatusReceived:
		return "Reçue par la plateforme"
	case StatusMadeAvailable:
		return "Mise à disposition"
	case StatusTakenInCharge:
		return "Prise en charge"
	case StatusApproved:
		return "Approuvée"
	case StatusPartiallyApproved:
		return "Approuvée partiellement"
	case StatusDisputed:
		return "En litige"
	case StatusSuspended:
		return "Suspendue"
	case StatusRejectedEmission:
		return "Rejetée à l'émission"
	case StatusRefused:
		return "Refusée"
	case StatusPaymentSent:
		return "Paiement transmis"
	case StatusRejectedReception:
		return "Rejetée à la réception"
	case StatusCollected:
		return "Encaissée"
	case StatusCompleted:
		return "Complétée"
	}
	return ""
}

// VATRegime is the seller's VAT declaration regime, which drives
// e-reporting transmission frequencies
type VATRegime string

const (
	RegimeNormalMonthly   VATRegime = "real_normal_monthly"
	RegimeNormalQuarterly VATRegime = "real_normal_quarterly"
	RegimeSimplified      VATRegime = "simplified_real"
	RegimeFranchise       VATRegime = "franchise"
)

// Valid reports whether the regime is a known value
func (r VATRegime) Valid() bool {
	switch r {
	case RegimeNormalMonthly, RegimeNormalQuarterly, RegimeSimplified, RegimeFranchise:
		return true
	}
	return false
}

// TransactionType classifies e-reporting transactions that fall outside
// the e-invoicing mandate
type TransactionType string

const (
	TransactionB2CDomestic TransactionType = "b2c_domestic"
	TransactionB2BIntraEU  TransactionType = "b2b_intra_eu"
	TransactionB2BExtraEU  TransactionType = "b2b_extra_eu"
)

// Valid reports whether the transaction type is known
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionB2CDomestic, TransactionB2BIntraEU, TransactionB2BExtraEU:
		return true
	}
	return false
}

// International reports whether the transaction crosses a border and
// therefore requires a counterparty country code
func (t TransactionType) International() bool {
	return t == TransactionB2BIntraEU || t == TransactionB2BExtraEU
}

// TransmissionMode selects individual or aggregated e-reporting
type TransmissionMode string

const (
	TransmissionIndividual TransmissionMode = "individual"
	TransmissionAggregated TransmissionMode = "aggregated"
)

package lifecycle

import (
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rezonia/facturx-fr/internal/model"
)

// CDAR wire constants
const (
	NamespaceCDAR = "urn:un:unece:uncefact:data:standard:CrossDomainAcknowledgementAndResponse:100"
	NamespaceRAM  = "urn:un:unece:uncefact:data:standard:ReusableAggregateBusinessInformationEntity:100"
	NamespaceUDT  = "urn:un:unece:uncefact:data:standard:UnqualifiedDataType:100"

	CDARGuideline = "urn:factur-x.eu:1p0:cdar"
	CDARTypeCode  = "YC2"
)

// Role codes for CDAR trade parties
const (
	RoleBuyer          = "BY"
	RoleSeller         = "SE"
	RoleBuyerPlatform  = "DL"
	RoleSellerPlatform = "WK"
	RoleTaxAuthority   = "DFH"
)

// Party identifies one CDAR participant: an identifier under a scheme
// (0002 for SIREN) and its role in the exchange
type Party struct {
	Identifier string `json:"identifier"`
	SchemeID   string `json:"scheme_id"`
	Role       string `json:"role"`
}

// Message is a status acknowledgement exchanged between platforms
type Message struct {
	ID               string              `json:"id"`
	IssueTime        time.Time           `json:"issue_time"`
	Status           model.InvoiceStatus `json:"status"`
	InvoiceReference string              `json:"invoice_reference"`
	Sender           Party               `json:"sender"`
	Recipients       []Party             `json:"recipients,omitempty"`
	Reason           string              `json:"reason,omitempty"`
	ReasonCode       string              `json:"reason_code,omitempty"`
	Amount           *decimal.Decimal    `json:"amount,omitempty"`
}

// NewMessage creates a message with a generated ID and the current
// time. Reason, recipients and amount are set on the returned value.
func NewMessage(status model.InvoiceStatus, invoiceRef string, sender Party) *Message {
	return &Message{
		ID:               uuid.NewString(),
		IssueTime:        time.Now().UTC(),
		Status:           status,
		InvoiceReference: invoiceRef,
		Sender:           sender,
	}
}

// Validate checks the message invariants
func (m *Message) Validate() error {
	if !m.Status.Valid() {
		return model.NewValidationError("status", int(m.Status), "enum", "unknown lifecycle status")
	}
	if m.InvoiceReference == "" {
		return model.NewValidationError("invoice_reference", nil, "required", "acknowledgements must reference an invoice")
	}
	if m.Sender.Identifier == "" {
		return model.NewValidationError("sender.identifier", nil, "required", "sender identifier is required")
	}
	if RequiresReason(m.Status) && m.Reason == "" {
		return model.NewValidationError("reason", nil, "required", "this status requires a reason")
	}
	return nil
}

// GenerateCDAR renders the message as CrossDomainAcknowledgementAndResponse
// XML. An empty ID or zero issue time is defaulted without mutating msg.
func GenerateCDAR(msg *Message) ([]byte, error) {
	if err := msg.Validate(); err != nil {
		return nil, model.NewGenerationError(model.FormatCDAR, "message", "message fails its invariants", err)
	}
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	issued := msg.IssueTime
	if issued.IsZero() {
		issued = time.Now().UTC()
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("rsm:CrossDomainAcknowledgementAndResponse")
	root.CreateAttr("xmlns:rsm", NamespaceCDAR)
	root.CreateAttr("xmlns:ram", NamespaceRAM)
	root.CreateAttr("xmlns:udt", NamespaceUDT)

	ctx := root.CreateElement("rsm:ExchangedDocumentContext")
	param := ctx.CreateElement("ram:GuidelineSpecifiedDocumentContextParameter")
	setTextChild(param, "ram:ID", CDARGuideline)

	exchanged := root.CreateElement("rsm:ExchangedDocument")
	setTextChild(exchanged, "ram:ID", id)
	setTextChild(exchanged, "ram:TypeCode", CDARTypeCode)
	setTextChild(exchanged, "ram:StatusCode", strconv.Itoa(int(msg.Status)))
	issue := exchanged.CreateElement("ram:IssueDateTime")
	stamp := setTextChild(issue, "udt:DateTimeString", issued.Format("20060102"))
	stamp.CreateAttr("format", "102")
	writeCDARParty(exchanged, "ram:SenderTradeParty", msg.Sender)
	for _, r := range msg.Recipients {
		writeCDARParty(exchanged, "ram:RecipientTradeParty", r)
	}

	ack := root.CreateElement("rsm:AcknowledgementDocument")
	setTextChild(ack, "ram:StatusCode", strconv.Itoa(int(msg.Status)))
	if msg.Reason != "" {
		setTextChild(ack, "ram:ReasonInformation", msg.Reason)
	}
	if msg.ReasonCode != "" {
		setTextChild(ack, "ram:ReasonCode", msg.ReasonCode)
	}
	if msg.Amount != nil {
		setTextChild(ack, "ram:SpecifiedAmount", msg.Amount.StringFixed(2))
	}
	ref := ack.CreateElement("ram:ReferenceReferencedDocument")
	setTextChild(ref, "ram:IssuerAssignedID", msg.InvoiceReference)

	doc.Indent(2)
	return doc.WriteToBytes()
}

// ParseCDAR reads an acknowledgement back from its XML form
func ParseCDAR(data []byte) (*Message, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, model.NewParseError(model.FormatCDAR, "document", "not well-formed XML", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "CrossDomainAcknowledgementAndResponse" {
		return nil, model.NewParseError(model.FormatCDAR, "root", "not an acknowledgement document", nil)
	}
	if g := doc.FindElement("//ram:GuidelineSpecifiedDocumentContextParameter/ram:ID"); g == nil || strings.TrimSpace(g.Text()) != CDARGuideline {
		return nil, model.NewParseError(model.FormatCDAR, "guideline", "missing or unexpected guideline identifier", nil)
	}

	msg := &Message{}

	exchanged := doc.FindElement("//rsm:ExchangedDocument")
	if exchanged == nil {
		return nil, model.NewParseError(model.FormatCDAR, "exchanged_document", "missing rsm:ExchangedDocument", nil)
	}
	if el := exchanged.FindElement("ram:ID"); el != nil {
		msg.ID = strings.TrimSpace(el.Text())
	}
	statusEl := exchanged.FindElement("ram:StatusCode")
	if statusEl == nil {
		return nil, model.NewParseError(model.FormatCDAR, "status", "missing ram:StatusCode", nil)
	}
	code, err := strconv.Atoi(strings.TrimSpace(statusEl.Text()))
	if err != nil {
		return nil, model.NewParseError(model.FormatCDAR, "status", "status code is not numeric", err)
	}
	msg.Status = model.InvoiceStatus(code)
	if !msg.Status.Valid() {
		return nil, model.NewParseError(model.FormatCDAR, "status", "unknown status code "+statusEl.Text(), nil)
	}
	if el := exchanged.FindElement("ram:IssueDateTime/udt:DateTimeString"); el != nil {
		if ts, err := time.Parse("20060102", strings.TrimSpace(el.Text())); err == nil {
			msg.IssueTime = ts
		}
	}
	if sender := exchanged.FindElement("ram:SenderTradeParty"); sender != nil {
		msg.Sender = readCDARParty(sender)
	}
	if msg.Sender.Identifier == "" {
		return nil, model.NewParseError(model.FormatCDAR, "sender", "missing sender identifier", nil)
	}
	for _, r := range exchanged.FindElements("ram:RecipientTradeParty") {
		msg.Recipients = append(msg.Recipients, readCDARParty(r))
	}

	ack := doc.FindElement("//rsm:AcknowledgementDocument")
	if ack == nil {
		return nil, model.NewParseError(model.FormatCDAR, "acknowledgement", "missing rsm:AcknowledgementDocument", nil)
	}
	if el := ack.FindElement("ram:ReasonInformation"); el != nil {
		msg.Reason = strings.TrimSpace(el.Text())
	}
	if el := ack.FindElement("ram:ReasonCode"); el != nil {
		msg.ReasonCode = strings.TrimSpace(el.Text())
	}
	if el := ack.FindElement("ram:SpecifiedAmount"); el != nil {
		if d, err := decimal.NewFromString(strings.TrimSpace(el.Text())); err == nil {
			msg.Amount = &d
		}
	}
	refEl := ack.FindElement("ram:ReferenceReferencedDocument/ram:IssuerAssignedID")
	if refEl == nil || strings.TrimSpace(refEl.Text()) == "" {
		return nil, model.NewParseError(model.FormatCDAR, "invoice_reference", "missing referenced invoice", nil)
	}
	msg.InvoiceReference = strings.TrimSpace(refEl.Text())

	if err := msg.Validate(); err != nil {
		return nil, model.NewParseError(model.FormatCDAR, "message", "parsed message fails its invariants", err)
	}
	return msg, nil
}

func writeCDARParty(parent *etree.Element, tag string, p Party) {
	el := parent.CreateElement(tag)
	id := setTextChild(el, "ram:ID", p.Identifier)
	if p.SchemeID != "" {
		id.CreateAttr("schemeID", p.SchemeID)
	}
	if p.Role != "" {
		setTextChild(el, "ram:RoleCode", p.Role)
	}
}

func readCDARParty(el *etree.Element) Party {
	p := Party{}
	if id := el.FindElement("ram:ID"); id != nil {
		p.Identifier = strings.TrimSpace(id.Text())
		p.SchemeID = id.SelectAttrValue("schemeID", "")
	}
	if role := el.FindElement("ram:RoleCode"); role != nil {
		p.Role = strings.TrimSpace(role.Text())
	}
	return p
}

func setTextChild(parent *etree.Element, tag, value string) *etree.Element {
	e := parent.CreateElement(tag)
	e.SetText(value)
	return e
}

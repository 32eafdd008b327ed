package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"

	"github.com/fastship/backend/config"
	"github.com/fastship/backend/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// Sender delivers a rendered email. Failures are opaque to the
// triggering request; retry policy lives in the queue.
type Sender interface {
	Send(to Recipient, subject, htmlBody string) error
}

// SMTPSender delivers mail through the configured SMTP server.
type SMTPSender struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

// NewSMTPSender constructs an SMTPSender from config.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:     cfg.From,
		fromName: cfg.FromName,
	}
}

// Send delivers one HTML email.
func (s *SMTPSender) Send(to Recipient, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.from, s.fromName)
	msg.SetAddressHeader("To", to.Email, to.FullName)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return s.dialer.DialAndSend(msg)
}

// Mailer renders templates and hands the result to a Sender.
type Mailer struct {
	sender    Sender
	templates *template.Template
	baseURL   string
}

// New constructs a Mailer. clientDomain is the frontend host links
// point at, e.g. "localhost:5173".
func New(sender Sender, clientDomain string) (*Mailer, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Mailer{
		sender:    sender,
		templates: templates,
		baseURL:   "http://" + clientDomain,
	}, nil
}

type actionContext struct {
	Title         string
	RecipientName string
	MainMessage   template.HTML
	ButtonText    string
	ButtonLink    string
	BaseURL       string
}

type shipmentContext struct {
	Title             string
	RecipientName     string
	MainMessage       template.HTML
	HighlightBox      template.HTML
	Shipment          types.ShipmentSummary
	DeliveryDate      string
	CounterpartyLabel string
	CounterpartyInfo  string
	BaseURL           string
}

// SendVerification emails the account-activation link.
func (m *Mailer) SendVerification(user Recipient, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", m.baseURL, token)
	body, err := m.render("action.html", actionContext{
		Title:         "Verify Your Email Address",
		RecipientName: user.FullName,
		MainMessage:   "Thank you for registering with FastShip! To activate your account, please verify your email.",
		ButtonText:    "Verify Email",
		ButtonLink:    link,
		BaseURL:       m.baseURL,
	})
	if err != nil {
		return err
	}
	return m.sender.Send(user, "FastShip - Verify your email", body)
}

// SendPasswordReset emails the reset link.
func (m *Mailer) SendPasswordReset(user Recipient, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.baseURL, token)
	body, err := m.render("action.html", actionContext{
		Title:         "Reset Your Password",
		RecipientName: user.FullName,
		MainMessage:   "We received a request to reset your FastShip password. This link is valid for 10 minutes.",
		ButtonText:    "Reset Password",
		ButtonLink:    link,
		BaseURL:       m.baseURL,
	})
	if err != nil {
		return err
	}
	return m.sender.Send(user, "FastShip - Reset your password", body)
}

// SendShipmentCreated notifies both parties of a new shipment: the
// buyer gets an action-required email, the seller a confirmation.
func (m *Mailer) SendShipmentCreated(shipment types.ShipmentSummary, seller, buyer Recipient) error {
	buyerBody, err := m.render("shipment_status.html", shipmentContext{
		Title:             "Action Required: New Shipment",
		RecipientName:     buyer.FullName,
		MainMessage:       template.HTML(fmt.Sprintf("A new shipment containing '<strong>%s</strong>' has been initiated.", template.HTMLEscapeString(shipment.Product))),
		HighlightBox:      "<strong>Action Required:</strong><br>Please log in to Approve or Reject this shipment.",
		Shipment:          shipment,
		DeliveryDate:      formatDelivery(shipment),
		CounterpartyLabel: "Seller",
		CounterpartyInfo:  partyInfo(seller),
		BaseURL:           m.baseURL,
	})
	if err != nil {
		return err
	}

	sellerBody, err := m.render("shipment_status.html", shipmentContext{
		Title:             "Shipment Created",
		RecipientName:     seller.FullName,
		MainMessage:       template.HTML(fmt.Sprintf("Your shipment '<strong>%s</strong>' has been registered.", template.HTMLEscapeString(shipment.Product))),
		HighlightBox:      "<strong>Status: Pending Approval</strong><br>Waiting for buyer response.",
		Shipment:          shipment,
		DeliveryDate:      formatDelivery(shipment),
		CounterpartyLabel: "Buyer",
		CounterpartyInfo:  partyInfo(buyer),
		BaseURL:           m.baseURL,
	})
	if err != nil {
		return err
	}

	if err := m.sender.Send(buyer, "Action Required: "+shipment.Product, buyerBody); err != nil {
		return err
	}
	return m.sender.Send(seller, "Shipment Created: "+shipment.Product, sellerBody)
}

// SendApprovalModified notifies both parties of an approval change.
func (m *Mailer) SendApprovalModified(shipment types.ShipmentSummary, seller, buyer Recipient) error {
	sellerBody, err := m.render("shipment_status.html", shipmentContext{
		Title:             "Shipment Status Update",
		RecipientName:     seller.FullName,
		MainMessage:       "The approval status for your shipment has been modified.",
		HighlightBox:      template.HTML(fmt.Sprintf("Changes made by: <strong>%s</strong>", template.HTMLEscapeString(partyInfo(buyer)))),
		Shipment:          shipment,
		DeliveryDate:      formatDelivery(shipment),
		CounterpartyLabel: "Buyer",
		CounterpartyInfo:  partyInfo(buyer),
		BaseURL:           m.baseURL,
	})
	if err != nil {
		return err
	}

	buyerBody, err := m.render("shipment_status.html", shipmentContext{
		Title:             "Order Status Changed",
		RecipientName:     buyer.FullName,
		MainMessage:       "The status of your purchase was recently updated.",
		HighlightBox:      "<strong>Was this you?</strong><br>If you didn't authorize this change, contact support.",
		Shipment:          shipment,
		DeliveryDate:      formatDelivery(shipment),
		CounterpartyLabel: "Seller",
		CounterpartyInfo:  partyInfo(seller),
		BaseURL:           m.baseURL,
	})
	if err != nil {
		return err
	}

	if err := m.sender.Send(seller, "Shipment Update: "+shipment.Product, sellerBody); err != nil {
		return err
	}
	return m.sender.Send(buyer, "Order Update: "+shipment.Product, buyerBody)
}

func (m *Mailer) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := m.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatDelivery(shipment types.ShipmentSummary) string {
	if shipment.EstimatedDelivery == nil {
		return "N/A"
	}
	return shipment.EstimatedDelivery.Format("2006-01-02 15:04")
}

func partyInfo(r Recipient) string {
	return fmt.Sprintf("%s (%s)", r.Username, r.Email)
}

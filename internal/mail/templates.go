package mail

import (
	"fmt"

	"github.com/plastware/storefront/internal/models"
)

func OrderConfirmation(o *models.Order) (subject, html string) {
	subject = fmt.Sprintf("Order %s confirmed", o.OrderNumber)
	body := fmt.Sprintf("<h2>Thanks for your order, %s!</h2><p>Order <b>%s</b> has been placed.</p><ul>",
		o.ShippingAddress.Name, o.OrderNumber)
	for _, it := range o.Items {
		body += fmt.Sprintf("<li>%s x%d @ %.2f</li>", it.Name, it.Quantity, it.Price)
	}
	body += fmt.Sprintf("</ul><p>Subtotal: %.2f<br>Shipping: %.2f<br>Total: <b>%.2f</b></p>",
		o.Subtotal, o.ShippingCharges, o.TotalAmount)
	return subject, body
}

func OrderShipped(o *models.Order) (subject, html string) {
	subject = fmt.Sprintf("Order %s shipped", o.OrderNumber)
	html = fmt.Sprintf("<p>Your order <b>%s</b> is on its way.</p>", o.OrderNumber)
	if o.TrackingNumber != "" {
		html += fmt.Sprintf("<p>Tracking number: <b>%s</b></p>", o.TrackingNumber)
	}
	return subject, html
}

func OrderDelivered(o *models.Order) (subject, html string) {
	subject = fmt.Sprintf("Order %s delivered", o.OrderNumber)
	html = fmt.Sprintf("<p>Your order <b>%s</b> has been delivered. Enjoy!</p>", o.OrderNumber)
	return subject, html
}

func ContactAcknowledgement(m *models.ContactMessage) (subject, html string) {
	subject = "We received your message"
	html = fmt.Sprintf("<p>Hi %s,</p><p>Thanks for reaching out about %q. Our team will get back to you shortly.</p>",
		m.Name, m.Subject)
	return subject, html
}

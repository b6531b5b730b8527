package notify

import (
	"fmt"
	"strings"
)

// Message is a rendered notification: Text goes out over WhatsApp, the
// Subject/Html pair over email.
type Message struct {
	Text    string
	Subject string
	Html    string
}

type templateSet struct {
	greeting            string
	welcome             string
	lateArrival         string
	payAhead            string
	seeYouTomorrow      string
	invitationSubject   string
	paymentConfirmed    string
	paymentSubject      string
	checkinDone         string
	roomInfo            string
	room                string
	description         string
	enjoyStay           string
	checkinSubject      string
	checkinButtonLabel  string
	paymentButtonLabel  string
}

var templates = map[string]templateSet{
	"es": {
		greeting:           "Hola %s,",
		welcome:            "¡Nos complace darte la bienvenida!",
		lateArrival:        "Puedes realizar el check-in en línea ahora:",
		payAhead:           "Por favor, realiza el pago por adelantado:",
		seeYouTomorrow:     "¡Te esperamos!",
		invitationSubject:  "Bienvenido - Check-in en línea",
		paymentConfirmed:   "¡Hemos recibido tu pago! Tu reserva está confirmada.",
		paymentSubject:     "Pago recibido - Reserva confirmada",
		checkinDone:        "¡Tu check-in se ha completado exitosamente!",
		roomInfo:           "Información de tu habitación:",
		room:               "Habitación",
		description:        "Descripción",
		enjoyStay:          "¡Te deseamos una estancia agradable!",
		checkinSubject:     "Tu check-in está completo - Información de habitación",
		checkinButtonLabel: "Check-in en línea",
		paymentButtonLabel: "Realizar pago",
	},
	"en": {
		greeting:           "Hello %s,",
		welcome:            "We are pleased to welcome you!",
		lateArrival:        "You can complete your online check-in now:",
		payAhead:           "Please make your payment in advance:",
		seeYouTomorrow:     "We look forward to seeing you!",
		invitationSubject:  "Welcome - Online check-in",
		paymentConfirmed:   "We have received your payment! Your reservation is confirmed.",
		paymentSubject:     "Payment received - Reservation confirmed",
		checkinDone:        "Your check-in has been completed successfully!",
		roomInfo:           "Your room information:",
		room:               "Room",
		description:        "Description",
		enjoyStay:          "We wish you a pleasant stay!",
		checkinSubject:     "Your check-in is complete - Room information",
		checkinButtonLabel: "Online check-in",
		paymentButtonLabel: "Make payment",
	},
	"de": {
		greeting:           "Hallo %s,",
		welcome:            "Wir freuen uns, dich willkommen zu heißen!",
		lateArrival:        "Du kannst den Check-in jetzt online durchführen:",
		payAhead:           "Bitte zahle im Voraus:",
		seeYouTomorrow:     "Wir freuen uns auf dich!",
		invitationSubject:  "Willkommen - Online Check-in",
		paymentConfirmed:   "Wir haben deine Zahlung erhalten! Deine Reservierung ist bestätigt.",
		paymentSubject:     "Zahlung erhalten - Reservierung bestätigt",
		checkinDone:        "Dein Check-in wurde erfolgreich abgeschlossen!",
		roomInfo:           "Informationen zu deinem Zimmer:",
		room:               "Zimmer",
		description:        "Beschreibung",
		enjoyStay:          "Wir wünschen dir einen angenehmen Aufenthalt!",
		checkinSubject:     "Dein Check-in ist abgeschlossen - Zimmerinformationen",
		checkinButtonLabel: "Online Check-in",
		paymentButtonLabel: "Zahlung durchführen",
	},
}

func templatesFor(language string) templateSet {
	if t, ok := templates[language]; ok {
		return t
	}
	// guest-facing default is Spanish, matching the property base
	return templates["es"]
}

// RenderInvitation builds the check-in invitation with the online
// check-in link and, when available, a payment link.
func RenderInvitation(guestName, language, checkInLink, paymentLink string) Message {
	t := templatesFor(language)
	var b strings.Builder
	fmt.Fprintf(&b, t.greeting+"\n\n", guestName)
	b.WriteString(t.welcome + "\n\n")
	b.WriteString(t.lateArrival + "\n\n" + checkInLink + "\n\n")
	if paymentLink != "" {
		b.WriteString(t.payAhead + "\n" + paymentLink + "\n\n")
	}
	b.WriteString(t.seeYouTomorrow)

	html := fmt.Sprintf(`<html><body><div style="max-width:600px;margin:0 auto;font-family:Arial,sans-serif">
<h1>%s</h1>
<p>%s</p>
<p>%s</p>
<p><a href="%s" style="display:inline-block;padding:12px 24px;background-color:#007bff;color:white;text-decoration:none;border-radius:4px">%s</a></p>
%s
<p>%s</p>
</div></body></html>`,
		fmt.Sprintf(t.greeting, guestName), t.welcome, t.lateArrival, checkInLink, t.checkinButtonLabel,
		paymentButton(t, paymentLink), t.seeYouTomorrow)

	return Message{Text: b.String(), Subject: t.invitationSubject, Html: html}
}

func paymentButton(t templateSet, paymentLink string) string {
	if paymentLink == "" {
		return ""
	}
	return fmt.Sprintf(`<p>%s</p>
<p><a href="%s" style="display:inline-block;padding:12px 24px;background-color:#007bff;color:white;text-decoration:none;border-radius:4px">%s</a></p>`,
		t.payAhead, paymentLink, t.paymentButtonLabel)
}

// RenderPaymentConfirmation builds the message sent after a completed
// payment webhook.
func RenderPaymentConfirmation(guestName, language string) Message {
	t := templatesFor(language)
	text := fmt.Sprintf(t.greeting+"\n\n%s\n\n%s", guestName, t.paymentConfirmed, t.seeYouTomorrow)
	html := fmt.Sprintf(`<html><body><div style="max-width:600px;margin:0 auto;font-family:Arial,sans-serif">
<h1>%s</h1>
<p>%s</p>
<p>%s</p>
</div></body></html>`,
		fmt.Sprintf(t.greeting, guestName), t.paymentConfirmed, t.seeYouTomorrow)
	return Message{Text: text, Subject: t.paymentSubject, Html: html}
}

// RenderCheckInConfirmation builds the post-check-in message carrying the
// room assignment.
func RenderCheckInConfirmation(guestName, language, roomNumber, roomDescription string) Message {
	t := templatesFor(language)
	if roomNumber == "" {
		roomNumber = "N/A"
	}
	if roomDescription == "" {
		roomDescription = "N/A"
	}
	text := fmt.Sprintf(t.greeting+"\n\n%s\n\n%s\n- %s: %s\n- %s: %s\n\n%s",
		guestName, t.checkinDone, t.roomInfo, t.room, roomNumber, t.description, roomDescription, t.enjoyStay)
	html := fmt.Sprintf(`<html><body><div style="max-width:600px;margin:0 auto;font-family:Arial,sans-serif">
<h1>%s</h1>
<p>%s</p>
<div style="background-color:#f5f5f5;padding:15px;border-radius:4px">
<h3>%s</h3>
<p><strong>%s:</strong> %s</p>
<p><strong>%s:</strong> %s</p>
</div>
<p>%s</p>
</div></body></html>`,
		fmt.Sprintf(t.greeting, guestName), t.checkinDone, t.roomInfo, t.room, roomNumber, t.description, roomDescription, t.enjoyStay)
	return Message{Text: text, Subject: t.checkinSubject, Html: html}
}

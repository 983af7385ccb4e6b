package email

import (
	"bytes"
	"fmt"
	"html/template"
)

// BookingConfirmation holds the values rendered into the confirmation mail.
type BookingConfirmation struct {
	PatientName string
	Date        string
	Time        string
	Motivo      string
	QRCodeURL   string
	CheckInCode string
}

var bookingConfirmationTmpl = template.Must(template.New("booking").Parse(`
<p>Hola <b>{{.PatientName}}</b>,</p>

<p>Tu turno fue registrado correctamente. Estos son los detalles:</p>

<ul>
  <li><b>Fecha:</b> {{.Date}}</li>
  <li><b>Hora:</b> {{.Time}}</li>
  <li><b>Motivo:</b> {{.Motivo}}</li>
</ul>

<p>Cuando llegues a la clínica, mostrá este código QR para registrar tu asistencia:</p>

<p style="text-align:center;">
  <img
    src="{{.QRCodeURL}}"
    alt="QR de tu turno"
    width="200"
    height="200"
    style="display:block; margin: 0 auto;"
  />
</p>

<p>Si no podés escanear el código, podés dictar este código en recepción:</p>
<p><b>Código de turno:</b> {{.CheckInCode}}</p>

<p>Gracias por elegir ClinicHealth 🩺</p>
`))

// BookingConfirmationSubject is the subject line for a booking confirmation.
func BookingConfirmationSubject(date, clock string) string {
	return fmt.Sprintf("Tu turno médico - %s %s", date, clock)
}

// BookingConfirmationTemplate renders the HTML body.
func BookingConfirmationTemplate(data BookingConfirmation) (string, error) {
	var buf bytes.Buffer
	if err := bookingConfirmationTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render booking confirmation: %w", err)
	}
	return buf.String(), nil
}

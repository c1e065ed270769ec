package pipeline

import (
	"mime"
	"strconv"
	"strings"

	"github.com/emersion/go-message/charset"

	"github.com/sells-group/leadhook/internal/model"
)

// PayloadShape identifies which email-forwarding provider produced an
// inbound payload.
type PayloadShape string

const (
	// ShapeMailgun is Mailgun's inbound route format (sender, body-plain, body-html).
	ShapeMailgun PayloadShape = "mailgun"
	// ShapeSendGrid is SendGrid's inbound parse format (from, text, html).
	ShapeSendGrid PayloadShape = "sendgrid"
	// ShapeGeneric covers everything else; fields are scavenged by name.
	ShapeGeneric PayloadShape = "generic"
)

// DetectShape returns the first payload shape whose required keys are
// present. A key counts as present only when its value is non-empty.
func DetectShape(payload map[string]any) PayloadShape {
	has := func(key string) bool { return field(payload, key) != "" }

	switch {
	case has("sender") && has("subject") && (has("body") || has("body-plain") || has("body-html")):
		return ShapeMailgun
	case has("from") && has("subject") && has("text"):
		return ShapeSendGrid
	default:
		return ShapeGeneric
	}
}

// Normalize converts an inbound payload into an EmailMessage. It never
// fails: missing fields come back empty.
func Normalize(payload map[string]any) (model.EmailMessage, PayloadShape) {
	shape := DetectShape(payload)

	var msg model.EmailMessage
	switch shape {
	case ShapeMailgun:
		msg = model.EmailMessage{
			From:    field(payload, "sender"),
			Subject: field(payload, "subject"),
			Body:    firstField(payload, "body-plain", "body-html", "body"),
			HTML:    field(payload, "body-html"),
		}
	case ShapeSendGrid:
		msg = model.EmailMessage{
			From:    field(payload, "from"),
			Subject: field(payload, "subject"),
			Body:    field(payload, "text"),
			HTML:    field(payload, "html"),
		}
	default:
		msg = model.EmailMessage{
			From:    firstField(payload, "from", "sender", "email"),
			Subject: firstField(payload, "subject", "title"),
			Body:    firstField(payload, "body", "text", "content"),
			HTML:    field(payload, "html"),
		}
	}

	msg.From = decodeHeader(msg.From)
	msg.Subject = decodeHeader(msg.Subject)
	return msg, shape
}

// FormPayload flattens url-encoded or multipart form values into a payload
// map, keeping the first value of each key.
func FormPayload(values map[string][]string) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func firstField(payload map[string]any, keys ...string) string {
	for _, k := range keys {
		if v := field(payload, k); v != "" {
			return v
		}
	}
	return ""
}

func field(payload map[string]any, key string) string {
	return Stringify(payload[key])
}

// Stringify renders a decoded JSON scalar as text. Objects, arrays and nil
// become "".
func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []string:
		if len(t) > 0 {
			return t[0]
		}
		return ""
	default:
		return ""
	}
}

// decodeHeader expands RFC 2047 encoded-words. Values that fail to decode
// are returned unchanged.
func decodeHeader(v string) string {
	if !strings.Contains(v, "=?") {
		return v
	}
	dec := &mime.WordDecoder{CharsetReader: charset.Reader}
	out, err := dec.DecodeHeader(v)
	if err != nil {
		return v
	}
	return out
}

// Package dispatcher implements the outbound leg of spec §4.5: it consumes
// conversation.responses, renders each ResponseReady into a Graph API
// message body, and issues the platform call under a token bucket and a
// circuit breaker.
package dispatcher

import (
	"fmt"

	"github.com/drblury/whatsapp-eventspine/internal/envelope"
)

// graphMessageBody builds the JSON body for POST /<version>/<phone_number_id>/messages
// from a ResponseReady payload, per the response_type table in spec §4.5.
type graphMessageBody struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`

	Text        *graphText        `json:"text,omitempty"`
	Image       *graphMedia       `json:"image,omitempty"`
	Audio       *graphMedia       `json:"audio,omitempty"`
	Video       *graphMedia       `json:"video,omitempty"`
	Document    *graphMedia       `json:"document,omitempty"`
	Interactive *graphInteractive `json:"interactive,omitempty"`
	Template    *graphTemplate    `json:"template,omitempty"`
}

type graphText struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url,omitempty"`
}

type graphMedia struct {
	ID       string `json:"id,omitempty"`
	Link     string `json:"link,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type graphInteractive struct {
	Type   string                     `json:"type"`
	Header *graphInteractiveHeader    `json:"header,omitempty"`
	Body   graphInteractiveBody       `json:"body"`
	Footer *graphInteractiveFooter    `json:"footer,omitempty"`
	Action envelope.InteractiveAction `json:"action"`
}

type graphInteractiveHeader struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type graphInteractiveBody struct {
	Text string `json:"text"`
}

type graphInteractiveFooter struct {
	Text string `json:"text"`
}

type graphTemplate struct {
	Name       string                      `json:"name"`
	Language   graphTemplateLanguage       `json:"language"`
	Components []envelope.TemplateComponent `json:"components,omitempty"`
}

type graphTemplateLanguage struct {
	Code string `json:"code"`
}

// buildBody renders resp into the wire body for a single Graph API call.
func buildBody(resp envelope.ResponseReady) (graphMessageBody, error) {
	body := graphMessageBody{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               resp.ToPhone,
	}

	switch resp.ResponseType {
	case envelope.ResponseTypeText:
		if resp.Content.Text == nil {
			return graphMessageBody{}, fmt.Errorf("dispatcher: response_type Text with no text content")
		}
		body.Type = "text"
		t := &graphText{Body: resp.Content.Text.Message}
		if resp.Content.Text.PreviewURL != nil {
			t.PreviewURL = *resp.Content.Text.PreviewURL
		}
		body.Text = t

	case envelope.ResponseTypeMedia:
		if resp.Content.Media == nil {
			return graphMessageBody{}, fmt.Errorf("dispatcher: response_type Media with no media content")
		}
		m := resp.Content.Media
		media := &graphMedia{}
		if m.MediaID != nil {
			media.ID = *m.MediaID
		}
		if m.Link != nil {
			media.Link = *m.Link
		}
		if m.Caption != nil {
			media.Caption = *m.Caption
		}
		if m.Filename != nil {
			media.Filename = *m.Filename
		}
		body.Type = string(m.Kind)
		switch m.Kind {
		case envelope.MediaKindImage:
			body.Image = media
		case envelope.MediaKindAudio:
			body.Audio = media
		case envelope.MediaKindVideo:
			body.Video = media
		case envelope.MediaKindDocument:
			body.Document = media
		default:
			return graphMessageBody{}, fmt.Errorf("dispatcher: unknown media kind %q", m.Kind)
		}

	case envelope.ResponseTypeInteractive:
		if resp.Content.Interactive == nil {
			return graphMessageBody{}, fmt.Errorf("dispatcher: response_type Interactive with no interactive content")
		}
		ic := resp.Content.Interactive
		body.Type = "interactive"
		interactive := &graphInteractive{
			Type:   ic.Kind,
			Body:   graphInteractiveBody{Text: ic.Body},
			Action: ic.Action,
		}
		if ic.Header != nil {
			interactive.Header = &graphInteractiveHeader{Type: "text", Text: *ic.Header}
		}
		if ic.Footer != nil {
			interactive.Footer = &graphInteractiveFooter{Text: *ic.Footer}
		}
		body.Interactive = interactive

	case envelope.ResponseTypeTemplate:
		if resp.Content.Template == nil {
			return graphMessageBody{}, fmt.Errorf("dispatcher: response_type Template with no template content")
		}
		tc := resp.Content.Template
		body.Type = "template"
		body.Template = &graphTemplate{
			Name:       tc.Name,
			Language:   graphTemplateLanguage{Code: tc.Language},
			Components: tc.Components,
		}

	default:
		return graphMessageBody{}, fmt.Errorf("dispatcher: unknown response_type %q", resp.ResponseType)
	}

	return body, nil
}

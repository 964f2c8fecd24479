package handlers

import (
	"html/template"
	"strings"
	"time"

	"nanobanana/internal/domain"
	"nanobanana/internal/i18n"
	"nanobanana/internal/workflow"
)

type imageView struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Preview     string `json:"preview"`
}

type resultView struct {
	DataURL      string    `json:"data_url"`
	MIMEType     string    `json:"mime_type"`
	Style        string    `json:"style,omitempty"`
	Prompt       string    `json:"prompt,omitempty"`
	CustomPrompt bool      `json:"custom_prompt"`
	Label        string    `json:"label"`
	Message      string    `json:"message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// sessionView is the JSON shape of a session and also feeds the page.
type sessionView struct {
	Phase       workflow.Phase `json:"phase"`
	Mode        domain.Mode    `json:"mode"`
	Style       string         `json:"style"`
	Prompt      string         `json:"prompt"`
	InFlight    bool           `json:"in_flight"`
	Epoch       uint64         `json:"epoch"`
	CanSubmit   bool           `json:"can_submit"`
	CanDownload bool           `json:"can_download"`
	Error       string         `json:"error,omitempty"`
	Image       *imageView     `json:"image,omitempty"`
	Result      *resultView    `json:"result,omitempty"`
}

func newSessionView(st *workflow.State, tr *i18n.Translator) sessionView {
	v := sessionView{
		Phase:       st.Phase(),
		Mode:        st.Mode,
		Style:       st.Style,
		Prompt:      st.Prompt,
		InFlight:    st.InFlight,
		Epoch:       st.Epoch,
		CanSubmit:   st.CanSubmit(),
		CanDownload: st.CanDownload(),
		Error:       tr.T(st.Error),
	}
	if img := st.Image; img != nil {
		v.Image = &imageView{
			Name:        img.Name,
			ContentType: img.ContentType,
			Size:        img.Size(),
			Width:       img.Width,
			Height:      img.Height,
			Preview:     img.Preview,
		}
	}
	if res := st.Result; res != nil {
		v.Result = &resultView{
			DataURL:      res.DataURL(),
			MIMEType:     res.MIMEType,
			Style:        res.Style,
			Prompt:       res.Prompt,
			CustomPrompt: res.CustomPrompt,
			Label:        tr.T(res.Label()),
			Message:      res.Message,
			CreatedAt:    res.CreatedAt,
		}
	}
	return v
}

// safeImageURL admits only base64 image data URLs into src attributes.
func safeImageURL(s string) template.URL {
	const prefix = "data:image/"
	if !strings.HasPrefix(s, prefix) {
		return ""
	}
	head, _, ok := strings.Cut(s, ",")
	if !ok || !strings.HasSuffix(head, ";base64") {
		return ""
	}
	if strings.ContainsAny(s, "\"'<> \t\r\n") {
		return ""
	}
	return template.URL(s)
}

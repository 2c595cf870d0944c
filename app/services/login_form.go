package services

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ErrNoLoginForm means the login page had no form to submit
var ErrNoLoginForm = errors.New("no login form found on page")

// loginForm is the parsed shape of the upstream login page
type loginForm struct {
	Action        string
	HiddenFields  map[string]string
	UsernameField string
	PasswordField string
	CaptchaField  string
	CaptchaText   string
}

// parseLoginForm extracts the first form from the login page: its action,
// hidden inputs (CSRF tokens), the detected username/password field names
// and the captcha question text when a captcha input is present.
func parseLoginForm(r io.Reader) (*loginForm, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	formNode := findElement(doc, "form")
	if formNode == nil {
		return nil, ErrNoLoginForm
	}

	form := &loginForm{
		Action:        attr(formNode, "action"),
		HiddenFields:  make(map[string]string),
		UsernameField: "username",
		PasswordField: "password",
	}

	walkElements(formNode, "input", func(n *html.Node) {
		name := attr(n, "name")
		if name == "" {
			return
		}
		switch {
		case attr(n, "type") == "hidden":
			form.HiddenFields[name] = attr(n, "value")
		case attr(n, "type") == "password":
			form.PasswordField = name
		case attr(n, "type") == "text" || strings.Contains(strings.ToLower(name), "user"):
			form.UsernameField = name
		}
		if name == "capt" {
			form.CaptchaField = name
		}
	})

	if form.CaptchaField != "" {
		form.CaptchaText = textContent(formNode)
	}
	return form, nil
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func walkElements(n *html.Node, tag string, fn func(*html.Node)) {
	if n.Type == html.ElementNode && n.Data == tag {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkElements(c, tag, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

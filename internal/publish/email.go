package publish

import (
	"html/template"
	"strings"
	texttemplate "text/template"
)

const emailTextTmpl = `Company Research: {{.CompanyName}}
{{rule .CompanyName}}
Website: {{.WebsiteURL}}

What They Sell
--------------
{{.WhatTheySell}}

Who They Target
---------------
{{.WhoTheyTarget}}

Summary
-------
{{.CondensedSummary}}

Compiled from {{.PagesScraped}} page{{if ne .PagesScraped 1}}s{{end}} of {{.WebsiteURL}}.
`

var emailText = texttemplate.Must(texttemplate.New("emailText").Funcs(texttemplate.FuncMap{
	"rule": func(s string) string { return strings.Repeat("=", len("Company Research: ")+len(s)) },
}).Parse(emailTextTmpl))

// EmailBody renders the plain text email for a report. Render failures fall
// back to the condensed summary so delivery never stalls on templating.
func EmailBody(rep Report) string {
	var b strings.Builder
	if err := emailText.Execute(&b, rep); err != nil {
		return rep.CondensedSummary
	}
	return b.String()
}

const emailHTMLTmpl = `<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  h3 { margin-bottom: 4px; }
  .meta { color: #777; }
</style>
</head>
<body>
  <h1>Company Research: {{.CompanyName}}</h1>
  <p class="meta">Website: <a href="{{.WebsiteURL}}">{{.WebsiteURL}}</a></p>

  <h3>What They Sell</h3>
  <p>{{.WhatTheySell}}</p>

  <h3>Who They Target</h3>
  <p>{{.WhoTheyTarget}}</p>

  <h3>Summary</h3>
  <p>{{.CondensedSummary}}</p>

  <p class="meta">Compiled from {{.PagesScraped}} page{{if ne .PagesScraped 1}}s{{end}}.</p>
</body>
</html>
`

var emailHTML = template.Must(template.New("emailHTML").Parse(emailHTMLTmpl))

// EmailHTML renders the HTML variant of the email body.
func EmailHTML(rep Report) string {
	var b strings.Builder
	if err := emailHTML.Execute(&b, rep); err != nil {
		return EmailBody(rep)
	}
	return b.String()
}

package htmltemplate

import (
	"crypto/rand"
	"fmt"
	"html/template"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_ExecuteHTMLTemplate(t *testing.T) {
	// File not found
	var inputData interface{}
	templateStr, err := ExecuteHTMLTemplate("non-existing-file.html", inputData)
	require.Empty(t, templateStr)
	require.ErrorContains(t, err, `no template "non-existing-file.html"`)

	// Success 🎉
	inputData = EmptyBodyEmailTemplate{Body: "foo bar"}
	templateStr, err = ExecuteHTMLTemplate("empty_body.tmpl", inputData)
	require.NoError(t, err)
	require.Contains(t, templateStr, "foo bar")
}

func Test_ExecuteHTMLTemplateForEmailEmptyBody(t *testing.T) {
	// create a random string:
	randReader := rand.Reader
	b := make([]byte, 10)
	_, err := randReader.Read(b)
	require.NoError(t, err)
	randomStr := fmt.Sprintf("%x", b)[:10]

	// check if the random string is imprinted in the template
	inputData := EmptyBodyEmailTemplate{Body: template.HTML(randomStr)}
	templateStr, err := ExecuteHTMLTemplateForEmailEmptyBody(inputData)
	require.NoError(t, err)
	require.Contains(t, templateStr, randomStr)
}

func Test_ExecuteHTMLTemplateForReportEmailMessage(t *testing.T) {
	data := ReportEmailMessageTemplate{
		ReportDate: "2026-03-07",
		TenantName: "Acme Markets",
	}
	templateStr, err := ExecuteHTMLTemplateForReportEmailMessage(data)
	require.NoError(t, err)
	require.Contains(t, templateStr, "<strong>2026-03-07</strong>")
	require.Contains(t, templateStr, "Acme Markets")
	require.Contains(t, templateStr, "font-family: Arial, sans-serif;")
}

func Test_ExecuteHTMLTemplateForReportEmailMessage_escapesTenantName(t *testing.T) {
	data := ReportEmailMessageTemplate{
		ReportDate: "2026-03-07",
		TenantName: "<script>alert(1)</script>",
	}
	templateStr, err := ExecuteHTMLTemplateForReportEmailMessage(data)
	require.NoError(t, err)
	require.NotContains(t, templateStr, "<script>")
}

// Package render wraps reconstructed policy HTML in a header template
// and hands it to an HTML->PDF converter. The converter itself is an
// external collaborator per spec.md §1 (interfaced only); this package
// still ships a concrete default implementation so the service works
// out of the box.
package render

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// HeaderContext carries the branding fields the PDF header template
// embeds, grounded on original_source's get_policy_pdf_op inline
// template (organization logo, "powered by" parent logo, policy title).
type HeaderContext struct {
	OrganizationLogoURL string
	ParentLogoURL       string
	PolicyTitle         string
	CompanyName         string
}

// Renderer converts wrapped HTML into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, html string, header HeaderContext) ([]byte, error)
}

// ErrRenderFailed wraps any failure from the underlying converter,
// mapped by callers to apperr.Render.
var ErrRenderFailed = fmt.Errorf("render: conversion failed")

const headerTemplate = `<html>
<head>
<style>
body { font-family: Arial, sans-serif; margin: 0; padding: 20px; }
.header { margin-bottom: 30px; padding-bottom: 15px; }
.header-top { display: flex; justify-content: space-between; align-items: flex-start; margin-bottom: 15px; }
.powered-by-section { display: flex; align-items: center; gap: 8px; font-size: 10px; color: #666; }
.parent-logo { height: 22px; width: auto; }
.main-logo-section { text-align: center; flex-grow: 1; }
.main-logo { height: 50px; width: auto; }
.policy-title { text-align: center; font-size: 24px; font-weight: bold; margin-top: 10px; color: #333; }
.company-name { text-align: center; font-size: 14px; color: #666; margin-top: 5px; }
</style>
</head>
<body>
<div class="header">
  <div class="header-top">
    <div class="powered-by-section">
      <span>Powered by </span>
      <img src="%s" alt="parent" class="parent-logo">
    </div>
    <div class="main-logo-section">
      <img src="%s" alt="organization" class="main-logo">
    </div>
  </div>
  <div class="policy-title">%s</div>
  <div class="company-name">%s</div>
</div>
%s
</body>
</html>`

// WrapHTML embeds the policy body inside the branded header template.
func WrapHTML(html string, header HeaderContext) string {
	return fmt.Sprintf(headerTemplate,
		header.ParentLogoURL, header.OrganizationLogoURL, header.PolicyTitle, header.CompanyName, html)
}

var (
	tagStripper   = regexp.MustCompile(`(?is)<script.*?</script>|<style.*?</style>|<[^>]+>`)
	whitespaceRun = regexp.MustCompile(`[ \t]+`)
	blankLines    = regexp.MustCompile(`\n{3,}`)
)

// VisibleText extracts a rough plain-text rendering of an HTML document:
// scripts and styles are dropped, remaining tags are stripped, and
// whitespace is collapsed. It is not an HTML layout engine — it exists
// so the default PDF renderer has readable content without one.
func VisibleText(html string) string {
	text := tagStripper.ReplaceAllString(html, "\n")
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = blankLines.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}

/*
 * MailIntake - Copyright (C) 2024 Scoutbase.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 2, and only
 * version 2 as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 59 Temple Place, Suite 330, Boston, MA  02111-1307  USA
 */

// Package extract turns a message's textual parts into the single plain
// string stored against a contact. It never fails; a message with no
// usable content degrades to the subject and finally to a placeholder.
package extract

import (
	"html"
	"regexp"
	"strings"
)

// Placeholder is stored when a message has no text, no HTML and no
// subject.
const Placeholder = "(no content)"

var (
	scriptRe  = regexp.MustCompile(`(?is)<script.*?</script>`)
	styleRe   = regexp.MustCompile(`(?is)<style.*?</style>`)
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	headRe    = regexp.MustCompile(`(?is)<head.*?</head>`)
	tagRe     = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe   = regexp.MustCompile(`\s+`)

	// Mail clients wrap long attribution lines, so the span between
	// "On" and "wrote:" may cross newlines.
	onWroteRe = regexp.MustCompile(`(?ms)^On .{0,200}?wrote:\s*$`)
)

// Body picks the best textual representation of a message: the plain
// text part if present, otherwise the HTML part with markup removed,
// otherwise the subject line, otherwise Placeholder.
func Body(subject, text, htmlPart string) string {
	if body := strings.TrimSpace(stripQuotedReply(text)); body != "" {
		return body
	}

	if body := strings.TrimSpace(stripQuotedReply(stripHTML(htmlPart))); body != "" {
		return body
	}

	if subject = strings.TrimSpace(subject); subject != "" {
		return subject
	}

	return Placeholder
}

// stripHTML reduces an HTML document to its visible text: scripts,
// styles, comments, the head element and all tags are removed, entities
// are decoded and whitespace runs collapse to a single space.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}

	s = scriptRe.ReplaceAllString(s, " ")
	s = styleRe.ReplaceAllString(s, " ")
	s = headRe.ReplaceAllString(s, " ")
	s = commentRe.ReplaceAllString(s, " ")
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripQuotedReply removes quoted-reply boilerplate: any line starting
// with a quote marker, and everything from a trailing "On ... wrote:"
// attribution onwards.
func stripQuotedReply(s string) string {
	if s == "" {
		return ""
	}

	if loc := onWroteRe.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			continue
		}
		kept = append(kept, line)
	}

	return strings.TrimRight(strings.Join(kept, "\n"), " \t\r\n")
}

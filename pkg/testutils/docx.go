package testutils

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Namespaces used by the fixture documents.
const (
	NSWord          = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	NSRel           = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	NSDrawing       = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	NSMain          = "http://schemas.openxmlformats.org/drawingml/2006/main"
	NSPicture       = "http://schemas.openxmlformats.org/drawingml/2006/picture"
	NSWord14        = "http://schemas.microsoft.com/office/word/2010/wordml"
	relTypeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relTypeStyles   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	relTypeImage    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	relTypeLink     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	relTypeNotes    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footnotes"
	relTypeNumbers  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering"
)

// Docx describes a minimal WordprocessingML fixture.
type Docx struct {
	Paragraphs []string          // Plain paragraphs, in order
	Styles     []string          // Extra paragraph style ids; the first paragraph uses Styles[0]
	Images     map[string][]byte // Media filename to bytes; one picture paragraph each
	Hyperlink  string            // External URL rendered as a trailing hyperlink paragraph
	Word14     bool              // Declare the w14 namespace and use it in the body
	Footnotes  []string          // Footnote texts; one referencing paragraph each
	Numbered   []string          // Bulleted list items, numbering instance 1
	Comment    string            // Paragraph text wrapped in comment anchors
	Raw        []string          // Extra body XML, before the section properties
}

// relIDs numbers the relationships of the main part: styles, images, the
// hyperlink, footnotes, numbering.
type relIDs struct {
	hyperlink, footnotes, numbering int
}

func (d Docx) relIDs(images int) relIDs {
	var ids relIDs
	next := images + 2
	if d.Hyperlink != "" {
		ids.hyperlink = next
		next++
	}
	if len(d.Footnotes) > 0 {
		ids.footnotes = next
		next++
	}
	if len(d.Numbered) > 0 {
		ids.numbering = next
	}
	return ids
}

// WriteDocx writes d as a .docx package at path.
func WriteDocx(t *testing.T, path string, d Docx) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, BuildDocx(t, d), 0644))
}

// BuildDocx returns the bytes of a .docx package described by d.
func BuildDocx(t *testing.T, d Docx) []byte {
	t.Helper()

	imageNames := make([]string, 0, len(d.Images))
	for name := range d.Images {
		imageNames = append(imageNames, name)
	}
	sort.Strings(imageNames)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name, content string) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}

	write("[Content_Types].xml", contentTypes(d, imageNames))
	write("_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+
		`<Relationship Id="rId1" Type="`+relTypeDocument+`" Target="word/document.xml"/>`+
		`</Relationships>`)
	write("word/_rels/document.xml.rels", documentRels(d, imageNames))
	write("word/document.xml", documentXML(d, imageNames))
	write("word/styles.xml", stylesXML(d.Styles))
	if len(d.Footnotes) > 0 {
		write("word/footnotes.xml", footnotesXML(d.Footnotes))
	}
	if len(d.Numbered) > 0 {
		write("word/numbering.xml", numberingXML)
	}
	for _, name := range imageNames {
		w, err := zw.Create("word/media/" + name)
		require.NoError(t, err)
		_, err = w.Write(d.Images[name])
		require.NoError(t, err)
	}

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func contentTypes(d Docx, images []string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	sb.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	sb.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	seen := map[string]bool{}
	for _, name := range images {
		ext := strings.TrimPrefix(path.Ext(name), ".")
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		fmt.Fprintf(&sb, `<Default Extension="%s" ContentType="image/%s"/>`, ext, ext)
	}
	sb.WriteString(`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>`)
	sb.WriteString(`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>`)
	if len(d.Footnotes) > 0 {
		sb.WriteString(`<Override PartName="/word/footnotes.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.footnotes+xml"/>`)
	}
	if len(d.Numbered) > 0 {
		sb.WriteString(`<Override PartName="/word/numbering.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"/>`)
	}
	sb.WriteString(`</Types>`)
	return sb.String()
}

func documentRels(d Docx, images []string) string {
	ids := d.relIDs(len(images))
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	sb.WriteString(`<Relationship Id="rId1" Type="` + relTypeStyles + `" Target="styles.xml"/>`)
	for i, name := range images {
		fmt.Fprintf(&sb, `<Relationship Id="rId%d" Type="%s" Target="media/%s"/>`, i+2, relTypeImage, name)
	}
	if d.Hyperlink != "" {
		fmt.Fprintf(&sb, `<Relationship Id="rId%d" Type="%s" Target="%s" TargetMode="External"/>`, ids.hyperlink, relTypeLink, escape(d.Hyperlink))
	}
	if ids.footnotes > 0 {
		fmt.Fprintf(&sb, `<Relationship Id="rId%d" Type="%s" Target="footnotes.xml"/>`, ids.footnotes, relTypeNotes)
	}
	if ids.numbering > 0 {
		fmt.Fprintf(&sb, `<Relationship Id="rId%d" Type="%s" Target="numbering.xml"/>`, ids.numbering, relTypeNumbers)
	}
	sb.WriteString(`</Relationships>`)
	return sb.String()
}

func documentXML(d Docx, images []string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString(`<w:document xmlns:w="` + NSWord + `" xmlns:r="` + NSRel + `" xmlns:wp="` + NSDrawing +
		`" xmlns:a="` + NSMain + `" xmlns:pic="` + NSPicture + `"`)
	if d.Word14 {
		sb.WriteString(` xmlns:w14="` + NSWord14 + `"`)
	}
	sb.WriteString(`><w:body>`)

	for i, text := range d.Paragraphs {
		sb.WriteString(`<w:p`)
		if d.Word14 {
			fmt.Fprintf(&sb, ` w14:paraId="%08X"`, i+1)
		}
		sb.WriteString(`>`)
		if i == 0 && len(d.Styles) > 0 {
			sb.WriteString(`<w:pPr><w:pStyle w:val="` + escape(d.Styles[0]) + `"/></w:pPr>`)
		}
		sb.WriteString(`<w:r><w:t xml:space="preserve">` + escape(text) + `</w:t></w:r></w:p>`)
	}
	for i, name := range images {
		fmt.Fprintf(&sb, `<w:p><w:r><w:drawing><wp:inline><wp:docPr id="%d" name="%s"/>`, i+1, escape(name))
		sb.WriteString(`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`)
		fmt.Fprintf(&sb, `<pic:pic><pic:blipFill><a:blip r:embed="rId%d"/></pic:blipFill></pic:pic>`, i+2)
		sb.WriteString(`</a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`)
	}
	if d.Hyperlink != "" {
		fmt.Fprintf(&sb, `<w:p><w:hyperlink r:id="rId%d"><w:r><w:t>%s</w:t></w:r></w:hyperlink></w:p>`, d.relIDs(len(images)).hyperlink, escape(d.Hyperlink))
	}
	for i := range d.Footnotes {
		fmt.Fprintf(&sb, `<w:p><w:r><w:t>Siehe Fußnote</w:t></w:r><w:r><w:footnoteReference w:id="%d"/></w:r></w:p>`, i+1)
	}
	for _, text := range d.Numbered {
		sb.WriteString(`<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr>`)
		sb.WriteString(`<w:r><w:t>` + escape(text) + `</w:t></w:r></w:p>`)
	}
	if d.Comment != "" {
		sb.WriteString(`<w:p><w:commentRangeStart w:id="0"/><w:r><w:t>` + escape(d.Comment) + `</w:t></w:r>`)
		sb.WriteString(`<w:commentRangeEnd w:id="0"/><w:r><w:commentReference w:id="0"/></w:r></w:p>`)
	}
	for _, raw := range d.Raw {
		sb.WriteString(raw)
	}

	sb.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr>`)
	sb.WriteString(`</w:body></w:document>`)
	return sb.String()
}

func stylesXML(extra []string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString(`<w:styles xmlns:w="` + NSWord + `">`)
	sb.WriteString(`<w:style w:type="paragraph" w:styleId="Normal"><w:name w:val="Normal"/></w:style>`)
	for _, id := range extra {
		fmt.Fprintf(&sb, `<w:style w:type="paragraph" w:styleId="%s"><w:name w:val="%s"/></w:style>`, escape(id), escape(id))
	}
	sb.WriteString(`</w:styles>`)
	return sb.String()
}

func footnotesXML(notes []string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString(`<w:footnotes xmlns:w="` + NSWord + `" xmlns:r="` + NSRel + `">`)
	sb.WriteString(`<w:footnote w:type="separator" w:id="-1"><w:p><w:r><w:separator/></w:r></w:p></w:footnote>`)
	sb.WriteString(`<w:footnote w:type="continuationSeparator" w:id="0"><w:p><w:r><w:continuationSeparator/></w:r></w:p></w:footnote>`)
	for i, text := range notes {
		fmt.Fprintf(&sb, `<w:footnote w:id="%d"><w:p><w:r><w:t>%s</w:t></w:r></w:p></w:footnote>`, i+1, escape(text))
	}
	sb.WriteString(`</w:footnotes>`)
	return sb.String()
}

var numberingXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<w:numbering xmlns:w="` + NSWord + `">` +
	`<w:abstractNum w:abstractNumId="0"><w:lvl w:ilvl="0"><w:numFmt w:val="bullet"/><w:lvlText w:val="•"/></w:lvl></w:abstractNum>` +
	`<w:num w:numId="1"><w:abstractNumId w:val="0"/></w:num>` +
	`</w:numbering>`

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

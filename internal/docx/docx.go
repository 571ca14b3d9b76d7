// Package docx reads, concatenates and writes Word (OOXML) documents.
//
// A document is kept as the raw parts of its zip package plus parsed trees
// of the parts that change during a merge: the main document, its
// relationships, the content types and the styles.
package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"betra/internal/errors"

	"github.com/beevik/etree"
	"github.com/gabriel-vasile/mimetype"
)

// OOXML namespaces and relationship types.
const (
	NSWord          = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	NSRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	NSPackageRels   = "http://schemas.openxmlformats.org/package/2006/relationships"

	RelTypeOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	RelTypeStyles         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"

	partContentTypes = "[Content_Types].xml"
	partPackageRels  = "_rels/.rels"
	defaultMainPart  = "word/document.xml"
)

// Document is an opened Word package. It holds no file handle.
type Document struct {
	parts map[string][]byte
	order []string

	main       string
	doc        *etree.Document
	body       *etree.Element
	rels       *etree.Document
	types      *etree.Document
	styles     *etree.Document
	stylesPart string
}

// Open reads the package at path. The file is closed before Open returns.
func Open(path string) (*Document, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewFileError("document not found", path, errors.FileNotFound, err)
		}
		return nil, errors.NewFileError(openFailure(path), path, errors.InvalidPath, err)
	}
	defer zr.Close()

	d, err := read(&zr.Reader)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read document %s", path)
	}
	return d, nil
}

// openFailure describes a file that exists but is not a readable package.
func openFailure(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "failed to open document"
	}
	return "not a Word document (detected " + mt.String() + ")"
}

// Parse reads a package from memory.
func Parse(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("not a zip package: %w", err)
	}
	return read(zr)
}

func read(zr *zip.Reader) (*Document, error) {
	d := &Document{parts: make(map[string][]byte, len(zr.File))}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read part %s: %w", f.Name, err)
		}
		d.addPart(f.Name, data)
	}

	var err error
	if d.types, err = d.parse(partContentTypes); err != nil {
		return nil, err
	}
	if d.types == nil {
		return nil, fmt.Errorf("package has no %s", partContentTypes)
	}

	d.main = defaultMainPart
	pkgRels, err := d.parse(partPackageRels)
	if err != nil {
		return nil, err
	}
	if pkgRels != nil {
		for _, rel := range relationships(pkgRels) {
			if rel.SelectAttrValue("Type", "") == RelTypeOfficeDocument {
				d.main = strings.TrimPrefix(rel.SelectAttrValue("Target", ""), "/")
				break
			}
		}
	}

	if d.doc, err = d.parse(d.main); err != nil {
		return nil, err
	}
	if d.doc == nil || d.doc.Root() == nil {
		return nil, fmt.Errorf("package has no main document part %s", d.main)
	}
	d.body = d.doc.Root().SelectElement("body")
	if d.body == nil {
		return nil, fmt.Errorf("main document part %s has no body", d.main)
	}

	if d.rels, err = d.parse(relsName(d.main)); err != nil {
		return nil, err
	}
	if d.rels == nil {
		d.rels = newRelationships()
	}

	for _, rel := range relationships(d.rels) {
		if rel.SelectAttrValue("Type", "") == RelTypeStyles && rel.SelectAttrValue("TargetMode", "") == "" {
			d.stylesPart = resolve(path.Dir(d.main), rel.SelectAttrValue("Target", ""))
			if d.styles, err = d.parse(d.stylesPart); err != nil {
				return nil, err
			}
			break
		}
	}

	return d, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// parse returns the XML tree of a part, or nil when the part is absent.
func (d *Document) parse(name string) (*etree.Document, error) {
	data, ok := d.parts[name]
	if !ok {
		return nil, nil
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return doc, nil
}

func (d *Document) addPart(name string, data []byte) {
	if _, ok := d.parts[name]; !ok {
		d.order = append(d.order, name)
	}
	d.parts[name] = data
}

// MainPart returns the package name of the main document part.
func (d *Document) MainPart() string {
	return d.main
}

// HasPart reports whether the package contains a part.
func (d *Document) HasPart(name string) bool {
	_, ok := d.parts[name]
	return ok
}

// Part returns the raw bytes of a part as last written.
func (d *Document) Part(name string) ([]byte, bool) {
	if err := d.flush(); err != nil {
		return nil, false
	}
	data, ok := d.parts[name]
	return data, ok
}

// Paragraphs returns the text of every body paragraph in document order.
func (d *Document) Paragraphs() []string {
	w := prefixOf(d.doc.Root(), NSWord)
	var out []string
	walk(d.body, func(e *etree.Element) bool {
		if e.Space != w || e.Tag != "p" {
			return true
		}
		var sb strings.Builder
		walk(e, func(t *etree.Element) bool {
			if t.Space == w && t.Tag == "t" {
				sb.WriteString(t.Text())
			}
			return true
		})
		out = append(out, sb.String())
		return false
	})
	return out
}

// StyleIDs returns the ids of every style the document defines.
func (d *Document) StyleIDs() []string {
	if d.styles == nil || d.styles.Root() == nil {
		return nil
	}
	var ids []string
	for _, s := range d.styles.Root().ChildElements() {
		if s.Tag != "style" {
			continue
		}
		if id := attrValue(s, "styleId"); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Bytes serializes the package.
func (d *Document) Bytes() ([]byte, error) {
	if err := d.flush(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range d.order {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(d.parts[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the package to path. The data goes to a temporary file in the
// same directory first and is renamed over path, so a failed save never
// leaves a partial document behind.
func (d *Document) Save(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}
	return writeFileAtomic(path, data)
}

// flush writes the parsed trees back into the part map.
func (d *Document) flush() error {
	trees := []struct {
		name string
		doc  *etree.Document
	}{
		{d.main, d.doc},
		{relsName(d.main), d.rels},
		{partContentTypes, d.types},
		{d.stylesPart, d.styles},
	}
	for _, t := range trees {
		if t.doc == nil || t.name == "" {
			continue
		}
		if t.name == relsName(d.main) && len(relationships(t.doc)) == 0 && !d.HasPart(t.name) {
			continue
		}
		data, err := t.doc.WriteToBytes()
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", t.name, err)
		}
		d.addPart(t.name, data)
	}
	return nil
}

func writeFileAtomic(dst string, data []byte) error {
	dir := filepath.Dir(dst)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dst)
}

func newRelationships() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	root := doc.CreateElement("Relationships")
	root.CreateAttr("xmlns", NSPackageRels)
	return doc
}

func relationships(doc *etree.Document) []*etree.Element {
	if doc == nil || doc.Root() == nil {
		return nil
	}
	return doc.Root().SelectElements("Relationship")
}

// relsName returns the relationships part of a part: a/b.xml -> a/_rels/b.xml.rels.
func relsName(part string) string {
	dir, file := path.Split(part)
	return dir + "_rels/" + file + ".rels"
}

// resolve turns a relationship target into a package part name.
func resolve(baseDir, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return strings.TrimPrefix(path.Join(baseDir, target), "/")
}

// relTarget is the inverse of resolve.
func relTarget(baseDir, part string) string {
	if baseDir == "." || baseDir == "" {
		return part
	}
	if strings.HasPrefix(part, baseDir+"/") {
		return strings.TrimPrefix(part, baseDir+"/")
	}
	return "/" + part
}

// prefixOf returns the prefix root binds to uri, or "".
func prefixOf(root *etree.Element, uri string) string {
	if root == nil {
		return ""
	}
	for _, a := range root.Attr {
		if a.Space == "xmlns" && a.Value == uri {
			return a.Key
		}
	}
	return ""
}

func attrValue(e *etree.Element, key string) string {
	for _, a := range e.Attr {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

// walk visits e and its descendants depth first. Returning false from fn
// skips the children of the visited element.
func walk(e *etree.Element, fn func(*etree.Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.ChildElements() {
		walk(c, fn)
	}
}

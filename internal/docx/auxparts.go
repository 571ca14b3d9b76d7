package docx

import (
	"fmt"
	"path"
	"strconv"

	"github.com/beevik/etree"
)

// Relationship types of the main document's auxiliary parts.
const (
	RelTypeNumbering = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering"
	RelTypeFootnotes = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footnotes"
	RelTypeEndnotes  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/endnotes"
)

// auxKind describes a part hanging off the main document whose entries body
// content refers to by id.
type auxKind struct {
	relType     string
	contentType string
	root        string // root element
	file        string // part name used when the base has none
	item        string // entry element of notes parts
	ref         string // body element referring to an entry
}

var (
	numberingKind = auxKind{
		relType:     RelTypeNumbering,
		contentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml",
		root:        "numbering",
		file:        "numbering.xml",
	}
	footnotesKind = auxKind{
		relType:     RelTypeFootnotes,
		contentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.footnotes+xml",
		root:        "footnotes",
		file:        "footnotes.xml",
		item:        "footnote",
		ref:         "footnoteReference",
	}
	endnotesKind = auxKind{
		relType:     RelTypeEndnotes,
		contentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.endnotes+xml",
		root:        "endnotes",
		file:        "endnotes.xml",
		item:        "endnote",
		ref:         "endnoteReference",
	}

	auxKinds = []auxKind{numberingKind, footnotesKind, endnotesKind}
)

// auxPart is a parsed auxiliary part. Base parts are parsed from the raw
// bytes, so edits stay off the base until the merger stages them.
type auxPart struct {
	name    string
	doc     *etree.Document
	rels    *etree.Document
	created bool
	touched bool
	scope   *relScope
}

// sourceAux returns the fragment's part of the given kind, or nil.
func (m *merger) sourceAux(kind auxKind) (*auxPart, error) {
	if a, ok := m.srcAux[kind.relType]; ok {
		return a, nil
	}
	var a *auxPart
	if name := auxName(m.src.rels, kind, path.Dir(m.src.main)); name != "" {
		doc, err := m.src.parse(name)
		if err != nil {
			return nil, err
		}
		if doc != nil && doc.Root() != nil {
			a = &auxPart{name: name, doc: doc}
			if a.rels, err = m.src.parse(relsName(name)); err != nil {
				return nil, err
			}
		}
	}
	m.srcAux[kind.relType] = a
	return a, nil
}

// targetAux returns the base's part of the given kind, creating it when
// the base has none.
func (m *merger) targetAux(kind auxKind) (*auxPart, error) {
	if a, ok := m.dstAux[kind.relType]; ok {
		return a, nil
	}
	dir := path.Dir(m.dst.main)
	a := &auxPart{name: auxName(m.rels, kind, dir)}
	if a.name != "" {
		var err error
		if a.doc, err = m.dst.parse(a.name); err != nil {
			return nil, err
		}
		if a.rels, err = m.dst.parse(relsName(a.name)); err != nil {
			return nil, err
		}
	}
	if a.doc == nil || a.doc.Root() == nil {
		if a.name == "" {
			a.name = m.uniquePartName(path.Join(dir, kind.file))
			addRelationship(m.rels, kind.relType, relTarget(dir, a.name), "")
		}
		a.doc = newAuxDocument(kind.root)
		a.created = true
		registerContentType(m.types, a.name, kind.contentType, true)
		m.stage(a.name, nil)
	}
	if a.rels == nil {
		a.rels = newRelationships()
	}
	m.dstAux[kind.relType] = a
	return a, nil
}

func auxName(rels *etree.Document, kind auxKind, dir string) string {
	for _, rel := range relationships(rels) {
		if rel.SelectAttrValue("Type", "") == kind.relType && rel.SelectAttrValue("TargetMode", "") == "" {
			return resolve(dir, rel.SelectAttrValue("Target", ""))
		}
	}
	return ""
}

func newAuxDocument(root string) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	el := doc.CreateElement("w:" + root)
	el.CreateAttr("xmlns:w", NSWord)
	el.CreateAttr("xmlns:r", NSRelationships)
	return doc
}

func (m *merger) ids(kind auxKind) map[string]string {
	ids, ok := m.auxIDs[kind.root]
	if !ok {
		ids = make(map[string]string)
		m.auxIDs[kind.root] = ids
	}
	return ids
}

// remapNumbering points every list reference in e at a numbering instance
// of the base.
func (m *merger) remapNumbering(e *etree.Element) error {
	var err error
	walk(e, func(el *etree.Element) bool {
		if err != nil {
			return false
		}
		if el.Tag != "numId" {
			return true
		}
		if a := findAttr(el, "val"); a != nil {
			a.Value, err = m.numbering(a.Value)
		}
		return false
	})
	return err
}

// numbering copies the fragment's numbering instance srcID, and its
// abstract definition, into the base and returns the new instance id.
// A reference the fragment cannot resolve becomes 0, which Word reads as
// no numbering.
func (m *merger) numbering(srcID string) (string, error) {
	ids := m.ids(numberingKind)
	if id, ok := ids[srcID]; ok {
		return id, nil
	}
	if srcID == "0" {
		return srcID, nil
	}

	src, err := m.sourceAux(numberingKind)
	if err != nil {
		return "", err
	}
	var num *etree.Element
	if src != nil {
		num = childByAttr(src.doc.Root(), "num", "numId", srcID)
	}
	if num == nil {
		ids[srcID] = "0"
		return "0", nil
	}

	dst, err := m.targetAux(numberingKind)
	if err != nil {
		return "", err
	}
	mergeNamespaces(dst.doc.Root(), src.doc.Root())

	cp := num.Copy()
	if ref := childByTag(cp, "abstractNumId"); ref != nil {
		if a := findAttr(ref, "val"); a != nil {
			if a.Value, err = m.abstractNum(src, dst, a.Value); err != nil {
				return "", err
			}
		}
	}
	id := strconv.Itoa(nextID(dst.doc.Root(), "num", "numId"))
	findAttr(cp, "numId").Value = id

	// Instances follow the abstract definitions and precede the cleanup marker.
	root := dst.doc.Root()
	if marker := childByTag(root, "numIdMacAtCleanup"); marker != nil {
		root.InsertChildAt(marker.Index(), cp)
	} else {
		root.AddChild(cp)
	}
	dst.touched = true
	ids[srcID] = id
	return id, nil
}

func (m *merger) abstractNum(src, dst *auxPart, srcID string) (string, error) {
	key := "abstract:" + srcID
	ids := m.ids(numberingKind)
	if id, ok := ids[key]; ok {
		return id, nil
	}
	def := childByAttr(src.doc.Root(), "abstractNum", "abstractNumId", srcID)
	if def == nil {
		return "", fmt.Errorf("fragment numbering references unknown abstract numbering %q", srcID)
	}

	cp := def.Copy()
	id := strconv.Itoa(nextID(dst.doc.Root(), "abstractNum", "abstractNumId"))
	findAttr(cp, "abstractNumId").Value = id

	root := dst.doc.Root()
	if first := firstChild(root, "num", "numIdMacAtCleanup"); first != nil {
		root.InsertChildAt(first.Index(), cp)
	} else {
		root.AddChild(cp)
	}
	ids[key] = id
	return id, nil
}

// remapNotes copies the footnotes and endnotes e refers to.
func (m *merger) remapNotes(e *etree.Element) error {
	var err error
	walk(e, func(el *etree.Element) bool {
		if err != nil {
			return false
		}
		for _, kind := range auxKinds {
			if kind.ref == "" || el.Tag != kind.ref {
				continue
			}
			if a := findAttr(el, "id"); a != nil {
				a.Value, err = m.note(kind, a.Value)
			}
			return false
		}
		return true
	})
	return err
}

func (m *merger) note(kind auxKind, srcID string) (string, error) {
	ids := m.ids(kind)
	if id, ok := ids[srcID]; ok {
		return id, nil
	}

	src, err := m.sourceAux(kind)
	if err != nil {
		return "", err
	}
	var item *etree.Element
	if src != nil {
		item = childByAttr(src.doc.Root(), kind.item, "id", srcID)
	}
	if item == nil {
		return "", fmt.Errorf("fragment references unknown %s %q", kind.item, srcID)
	}

	dst, err := m.targetAux(kind)
	if err != nil {
		return "", err
	}
	root := dst.doc.Root()
	mergeNamespaces(root, src.doc.Root())
	if dst.created && len(root.ChildElements()) == 0 {
		// A new notes part starts with the fragment's separators.
		for _, sep := range src.doc.Root().ChildElements() {
			if sep.Tag == kind.item && attrValue(sep, "type") != "" {
				root.AddChild(sep.Copy())
			}
		}
	}
	if dst.scope == nil {
		srcRels := src.rels
		if srcRels == nil {
			srcRels = newRelationships()
		}
		dst.scope = &relScope{
			src:    srcRels,
			srcDir: path.Dir(src.name),
			dst:    dst.rels,
			dstDir: path.Dir(dst.name),
			prefix: prefixOf(src.doc.Root(), NSRelationships),
			ids:    make(map[string]string),
		}
	}

	cp := item.Copy()
	dropComments(cp)
	if err := m.remap(cp, dst.scope); err != nil {
		return "", err
	}
	if err := m.remapNumbering(cp); err != nil {
		return "", err
	}
	id := strconv.Itoa(nextID(root, kind.item, "id"))
	findAttr(cp, "id").Value = id
	root.AddChild(cp)
	dst.touched = true
	ids[srcID] = id
	return id, nil
}

// nextID returns one more than the largest numeric key attribute among the
// children of root tagged tag, and at least 1.
func nextID(root *etree.Element, tag, key string) int {
	next := 1
	for _, c := range root.ChildElements() {
		if c.Tag != tag {
			continue
		}
		if n, err := strconv.Atoi(attrValue(c, key)); err == nil && n >= next {
			next = n + 1
		}
	}
	return next
}

func childByAttr(root *etree.Element, tag, key, value string) *etree.Element {
	for _, c := range root.ChildElements() {
		if c.Tag == tag && attrValue(c, key) == value {
			return c
		}
	}
	return nil
}

func childByTag(e *etree.Element, tag string) *etree.Element {
	return firstChild(e, tag)
}

func firstChild(e *etree.Element, tags ...string) *etree.Element {
	for _, c := range e.ChildElements() {
		for _, t := range tags {
			if c.Tag == t {
				return c
			}
		}
	}
	return nil
}

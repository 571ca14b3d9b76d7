package docx

import (
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// AppendFile opens the document at path and appends it. The fragment is
// released before AppendFile returns.
func (d *Document) AppendFile(path string) error {
	frag, err := Open(path)
	if err != nil {
		return err
	}
	return d.Append(frag)
}

// Append concatenates the body of frag onto d. The fragment's final section
// properties are dropped so the base keeps its page setup. Namespaces,
// styles, relationships, numbering definitions and footnotes or endnotes
// used by the copied content are carried over. Comment anchors are removed.
//
// Nothing in d changes unless the whole fragment merges.
func (d *Document) Append(frag *Document) error {
	if frag == nil || frag.body == nil {
		return fmt.Errorf("fragment has no body")
	}

	m := newMerger(d, frag)
	var blocks []*etree.Element
	for _, child := range frag.body.ChildElements() {
		if child.Tag == "sectPr" {
			continue
		}
		blk := child.Copy()
		if err := m.block(blk); err != nil {
			return err
		}
		blocks = append(blocks, blk)
	}
	styles, err := m.styles()
	if err != nil {
		return err
	}
	if err := m.flush(); err != nil {
		return err
	}

	m.commit()
	mergeNamespaces(d.doc.Root(), frag.doc.Root())
	for _, s := range styles {
		d.styles.Root().AddChild(s)
	}
	for _, blk := range blocks {
		d.insert(blk)
	}
	d.renumberDrawings()
	return nil
}

// insert places e before the body's final section properties.
func (d *Document) insert(e *etree.Element) {
	children := d.body.ChildElements()
	if n := len(children); n > 0 && children[n-1].Tag == "sectPr" {
		d.body.InsertChildAt(children[n-1].Index(), e)
		return
	}
	d.body.AddChild(e)
}

// mergeNamespaces declares on root every namespace src declares.
func mergeNamespaces(root, src *etree.Element) {
	for _, a := range src.Attr {
		if a.Space != "xmlns" {
			continue
		}
		if root.SelectAttr("xmlns:"+a.Key) == nil {
			root.CreateAttr("xmlns:"+a.Key, a.Value)
		}
	}

	// Markup-compatibility prefixes of the fragment stay ignorable.
	srcIgn := findAttr(src, "Ignorable")
	if srcIgn == nil {
		return
	}
	dstIgn := findAttr(root, "Ignorable")
	if dstIgn == nil {
		root.CreateAttr(srcIgn.FullKey(), srcIgn.Value)
		return
	}
	tokens := strings.Fields(dstIgn.Value)
	for _, tok := range strings.Fields(srcIgn.Value) {
		if !slices.Contains(tokens, tok) {
			tokens = append(tokens, tok)
		}
	}
	dstIgn.Value = strings.Join(tokens, " ")
}

// renumberDrawings gives every drawing object a unique id.
func (d *Document) renumberDrawings() {
	next := 1
	walk(d.body, func(e *etree.Element) bool {
		if e.Tag == "docPr" {
			if a := findAttr(e, "id"); a != nil {
				a.Value = strconv.Itoa(next)
				next++
			}
		}
		return true
	})
}

// addRelationship registers a new relationship in rels and returns its id.
func addRelationship(rels *etree.Document, typ, target, mode string) string {
	used := make(map[string]struct{})
	for _, rel := range relationships(rels) {
		used[rel.SelectAttrValue("Id", "")] = struct{}{}
	}
	id := ""
	for n := len(used) + 1; ; n++ {
		id = "rId" + strconv.Itoa(n)
		if _, ok := used[id]; !ok {
			break
		}
	}

	rel := rels.Root().CreateElement("Relationship")
	rel.CreateAttr("Id", id)
	rel.CreateAttr("Type", typ)
	rel.CreateAttr("Target", target)
	if mode != "" {
		rel.CreateAttr("TargetMode", mode)
	}
	return id
}

// contentType looks up the content type of a part. override reports whether
// it comes from a part override rather than an extension default.
func contentType(types *etree.Document, part string) (ct string, override bool) {
	root := types.Root()
	for _, o := range root.SelectElements("Override") {
		if o.SelectAttrValue("PartName", "") == "/"+part {
			return o.SelectAttrValue("ContentType", ""), true
		}
	}
	ext := strings.TrimPrefix(path.Ext(part), ".")
	for _, def := range root.SelectElements("Default") {
		if strings.EqualFold(def.SelectAttrValue("Extension", ""), ext) {
			return def.SelectAttrValue("ContentType", ""), false
		}
	}
	return "", false
}

func registerContentType(types *etree.Document, part, ct string, override bool) {
	if ct == "" {
		return
	}
	root := types.Root()
	if !override {
		have, haveOverride := contentType(types, part)
		if have == ct && !haveOverride {
			return
		}
		if have == "" {
			def := root.CreateElement("Default")
			def.CreateAttr("Extension", strings.TrimPrefix(path.Ext(part), "."))
			def.CreateAttr("ContentType", ct)
			return
		}
	}
	o := root.CreateElement("Override")
	o.CreateAttr("PartName", "/"+part)
	o.CreateAttr("ContentType", ct)
}

// merger carries the state of one Append. Every change meant for the base
// is staged here and only reaches it through commit.
type merger struct {
	dst, src *Document

	rels  *etree.Document // staged copy of the base's main relationships
	types *etree.Document // staged copy of the base's content types
	main  *relScope

	added  map[string][]byte // parts new to the base or rewritten
	order  []string
	copied map[string]string // fragment part to base part

	srcAux map[string]*auxPart
	dstAux map[string]*auxPart
	auxIDs map[string]map[string]string // per aux kind, fragment id to base id
}

func newMerger(dst, src *Document) *merger {
	m := &merger{
		dst:    dst,
		src:    src,
		rels:   dst.rels.Copy(),
		types:  dst.types.Copy(),
		added:  make(map[string][]byte),
		copied: make(map[string]string),
		srcAux: make(map[string]*auxPart),
		dstAux: make(map[string]*auxPart),
		auxIDs: make(map[string]map[string]string),
	}
	m.main = &relScope{
		src:    src.rels,
		srcDir: path.Dir(src.main),
		dst:    m.rels,
		dstDir: path.Dir(dst.main),
		prefix: prefixOf(src.doc.Root(), NSRelationships),
		ids:    make(map[string]string),
	}
	return m
}

// block rewrites one copied body element so every reference it holds
// points into the base.
func (m *merger) block(e *etree.Element) error {
	dropComments(e)
	if err := m.remap(e, m.main); err != nil {
		return err
	}
	if err := m.remapNumbering(e); err != nil {
		return err
	}
	return m.remapNotes(e)
}

// styles returns copies of the fragment styles whose id the base does not
// define. Styles the base already has win.
func (m *merger) styles() ([]*etree.Element, error) {
	d, frag := m.dst, m.src
	if d.styles == nil || frag.styles == nil || d.styles.Root() == nil || frag.styles.Root() == nil {
		return nil, nil
	}
	known := make(map[string]struct{})
	for _, id := range d.StyleIDs() {
		known[id] = struct{}{}
	}
	var out []*etree.Element
	for _, s := range frag.styles.Root().ChildElements() {
		if s.Tag != "style" {
			continue
		}
		id := attrValue(s, "styleId")
		if _, ok := known[id]; ok || id == "" {
			continue
		}
		cp := s.Copy()
		if err := m.remapNumbering(cp); err != nil {
			return nil, fmt.Errorf("style %s: %w", id, err)
		}
		out = append(out, cp)
		known[id] = struct{}{}
	}
	return out, nil
}

func (m *merger) stage(name string, data []byte) {
	if _, ok := m.added[name]; !ok {
		m.order = append(m.order, name)
	}
	m.added[name] = data
}

func (m *merger) hasPart(name string) bool {
	if m.dst.HasPart(name) {
		return true
	}
	_, ok := m.added[name]
	return ok
}

// uniquePartName returns name, or name with a numeric suffix when the
// package already holds a part of that name.
func (m *merger) uniquePartName(name string) string {
	if !m.hasPart(name) {
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 2; ; i++ {
		candidate := stem + "_" + strconv.Itoa(i) + ext
		if !m.hasPart(candidate) {
			return candidate
		}
	}
}

// flush serializes the touched auxiliary parts into the staged parts.
func (m *merger) flush() error {
	for _, kind := range auxKinds {
		a := m.dstAux[kind.relType]
		if a == nil || !(a.touched || a.created) {
			continue
		}
		data, err := a.doc.WriteToBytes()
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", a.name, err)
		}
		m.stage(a.name, data)
		if a.rels == nil || len(relationships(a.rels)) == 0 {
			continue
		}
		if data, err = a.rels.WriteToBytes(); err != nil {
			return fmt.Errorf("failed to serialize %s: %w", relsName(a.name), err)
		}
		m.stage(relsName(a.name), data)
	}
	return nil
}

// commit hands the staged relationships, content types and parts to the
// base.
func (m *merger) commit() {
	m.dst.rels = m.rels
	m.dst.types = m.types
	for _, name := range m.order {
		m.dst.addPart(name, m.added[name])
	}
}

// relScope maps the relationships of one fragment part onto the
// relationships of the matching base part.
type relScope struct {
	src, dst       *etree.Document
	srcDir, dstDir string
	prefix         string // relationships prefix in the fragment part
	ids            map[string]string
}

// remap rewrites every relationship reference in e to a relationship of
// the base part.
func (m *merger) remap(e *etree.Element, scope *relScope) error {
	if scope.prefix == "" {
		return nil
	}
	var err error
	walk(e, func(el *etree.Element) bool {
		if err != nil {
			return false
		}
		for i := range el.Attr {
			a := &el.Attr[i]
			if a.Space != scope.prefix {
				continue
			}
			var id string
			if id, err = m.relationship(scope, a.Value); err != nil {
				return false
			}
			a.Value = id
		}
		return err == nil
	})
	return err
}

func (m *merger) relationship(scope *relScope, srcID string) (string, error) {
	if id, ok := scope.ids[srcID]; ok {
		return id, nil
	}

	var rel *etree.Element
	for _, r := range relationships(scope.src) {
		if r.SelectAttrValue("Id", "") == srcID {
			rel = r
			break
		}
	}
	if rel == nil {
		return "", fmt.Errorf("fragment references unknown relationship %q", srcID)
	}

	typ := rel.SelectAttrValue("Type", "")
	target := rel.SelectAttrValue("Target", "")
	mode := rel.SelectAttrValue("TargetMode", "")

	var id string
	if mode == "External" {
		id = addRelationship(scope.dst, typ, target, mode)
	} else {
		part, err := m.copyPart(resolve(scope.srcDir, target))
		if err != nil {
			return "", err
		}
		id = addRelationship(scope.dst, typ, relTarget(scope.dstDir, part), "")
	}
	scope.ids[srcID] = id
	return id, nil
}

// copyPart stages a fragment part, and the parts it references, for the
// base and returns its new name.
func (m *merger) copyPart(srcPart string) (string, error) {
	if name, ok := m.copied[srcPart]; ok {
		return name, nil
	}
	data, ok := m.src.parts[srcPart]
	if !ok {
		return "", fmt.Errorf("fragment part %s is missing", srcPart)
	}

	name := m.uniquePartName(srcPart)
	m.copied[srcPart] = name
	m.stage(name, data)
	ct, override := contentType(m.src.types, srcPart)
	registerContentType(m.types, name, ct, override)

	relsData, ok := m.src.parts[relsName(srcPart)]
	if !ok {
		return name, nil
	}
	rels := etree.NewDocument()
	if err := rels.ReadFromBytes(relsData); err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", relsName(srcPart), err)
	}
	for _, rel := range relationships(rels) {
		if rel.SelectAttrValue("TargetMode", "") == "External" {
			continue
		}
		target := rel.SelectAttr("Target")
		if target == nil {
			continue
		}
		copied, err := m.copyPart(resolve(path.Dir(srcPart), target.Value))
		if err != nil {
			return "", err
		}
		target.Value = relTarget(path.Dir(name), copied)
	}
	out, err := rels.WriteToBytes()
	if err != nil {
		return "", err
	}
	m.stage(relsName(name), out)
	return name, nil
}

// dropComments removes comment anchors. Comment bodies are not carried over.
func dropComments(e *etree.Element) {
	var anchors []*etree.Element
	walk(e, func(el *etree.Element) bool {
		switch el.Tag {
		case "commentRangeStart", "commentRangeEnd", "commentReference":
			anchors = append(anchors, el)
			return false
		}
		return true
	})
	for _, a := range anchors {
		if p := a.Parent(); p != nil {
			p.RemoveChild(a)
		}
	}
}

func findAttr(e *etree.Element, key string) *etree.Attr {
	for i := range e.Attr {
		if e.Attr[i].Key == key {
			return &e.Attr[i]
		}
	}
	return nil
}

package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Constant pool
// ---------------------------------------------------------------------------

// Tag identifies the kind of a constant pool entry.
type Tag byte

const (
	TagUtf8        Tag = 1
	TagInteger     Tag = 3
	TagFloat       Tag = 4
	TagLong        Tag = 5
	TagDouble      Tag = 6
	TagClass       Tag = 7
	TagString      Tag = 8
	TagFieldref    Tag = 9
	TagMethodref   Tag = 10
	TagNameAndType Tag = 12
)

var tagNames = map[Tag]string{
	TagUtf8:        "Utf8",
	TagInteger:     "Integer",
	TagFloat:       "Float",
	TagLong:        "Long",
	TagDouble:      "Double",
	TagClass:       "Class",
	TagString:      "String",
	TagFieldref:    "Fieldref",
	TagMethodref:   "Methodref",
	TagNameAndType: "NameAndType",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tag(%d)", byte(t))
}

// Constant is one pool entry. Only the fields that belong to Tag are set:
// Utf8 uses Str; Integer, Float, Long and Double use the numeric fields;
// Class and String use Ref1 (a Utf8 index); the reference kinds use Ref1
// and Ref2.
type Constant struct {
	Tag    Tag
	Str    string
	Int    int32
	Float  float32
	Long   int64
	Double float64
	Ref1   uint16
	Ref2   uint16
}

// wide reports whether the entry takes two pool indices.
func (c *Constant) wide() bool {
	return c.Tag == TagLong || c.Tag == TagDouble
}

// maxPoolCount is the largest constant_pool_count a class file can hold.
const maxPoolCount = math.MaxUint16

// ConstantPool is a deduplicating constant pool. Index 0 is unused, and the
// slot after a Long or Double holds nil.
type ConstantPool struct {
	entries []*Constant
	index   map[string]uint16
	err     error
}

// NewConstantPool creates an empty pool.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{
		entries: []*Constant{nil},
		index:   make(map[string]uint16),
	}
}

// Count returns constant_pool_count: one more than the highest index.
func (p *ConstantPool) Count() int {
	return len(p.entries)
}

// Err returns the first overflow error, if any.
func (p *ConstantPool) Err() error {
	return p.err
}

// Entry returns the constant at index i, or nil for an unusable index.
func (p *ConstantPool) Entry(i uint16) *Constant {
	if int(i) >= len(p.entries) {
		return nil
	}
	return p.entries[i]
}

func (p *ConstantPool) add(key string, c *Constant) uint16 {
	if i, ok := p.index[key]; ok {
		return i
	}
	n := 1
	if c.wide() {
		n = 2
	}
	if len(p.entries)+n > maxPoolCount {
		if p.err == nil {
			p.err = fmt.Errorf("constant pool overflow: more than %d entries", maxPoolCount-1)
		}
		return 0
	}
	i := uint16(len(p.entries))
	p.entries = append(p.entries, c)
	if n == 2 {
		p.entries = append(p.entries, nil)
	}
	p.index[key] = i
	return i
}

// Utf8 interns a CONSTANT_Utf8.
func (p *ConstantPool) Utf8(s string) uint16 {
	if len(encodeModifiedUTF8(s)) > math.MaxUint16 && p.err == nil {
		p.err = fmt.Errorf("string constant too long: %d bytes", len(s))
	}
	return p.add("u:"+s, &Constant{Tag: TagUtf8, Str: s})
}

// Integer interns a CONSTANT_Integer.
func (p *ConstantPool) Integer(v int32) uint16 {
	return p.add(fmt.Sprintf("i:%d", v), &Constant{Tag: TagInteger, Int: v})
}

// Float interns a CONSTANT_Float, keyed by bit pattern.
func (p *ConstantPool) Float(v float32) uint16 {
	return p.add(fmt.Sprintf("f:%x", math.Float32bits(v)), &Constant{Tag: TagFloat, Float: v})
}

// Long interns a CONSTANT_Long.
func (p *ConstantPool) Long(v int64) uint16 {
	return p.add(fmt.Sprintf("j:%d", v), &Constant{Tag: TagLong, Long: v})
}

// Double interns a CONSTANT_Double, keyed by bit pattern.
func (p *ConstantPool) Double(v float64) uint16 {
	return p.add(fmt.Sprintf("d:%x", math.Float64bits(v)), &Constant{Tag: TagDouble, Double: v})
}

// Class interns a CONSTANT_Class for an internal name such as
// java/lang/String.
func (p *ConstantPool) Class(name string) uint16 {
	return p.add("c:"+name, &Constant{Tag: TagClass, Ref1: p.Utf8(name)})
}

// String interns a CONSTANT_String.
func (p *ConstantPool) String(s string) uint16 {
	return p.add("s:"+s, &Constant{Tag: TagString, Ref1: p.Utf8(s)})
}

// NameAndType interns a CONSTANT_NameAndType.
func (p *ConstantPool) NameAndType(name, desc string) uint16 {
	n, d := p.Utf8(name), p.Utf8(desc)
	return p.add(fmt.Sprintf("nt:%d:%d", n, d), &Constant{Tag: TagNameAndType, Ref1: n, Ref2: d})
}

// Fieldref interns a CONSTANT_Fieldref.
func (p *ConstantPool) Fieldref(class, name, desc string) uint16 {
	c, nt := p.Class(class), p.NameAndType(name, desc)
	return p.add(fmt.Sprintf("fr:%d:%d", c, nt), &Constant{Tag: TagFieldref, Ref1: c, Ref2: nt})
}

// Methodref interns a CONSTANT_Methodref.
func (p *ConstantPool) Methodref(class, name, desc string) uint16 {
	c, nt := p.Class(class), p.NameAndType(name, desc)
	return p.add(fmt.Sprintf("mr:%d:%d", c, nt), &Constant{Tag: TagMethodref, Ref1: c, Ref2: nt})
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

// Utf8At returns the string of the Utf8 entry at i.
func (p *ConstantPool) Utf8At(i uint16) (string, error) {
	c := p.Entry(i)
	if c == nil || c.Tag != TagUtf8 {
		return "", fmt.Errorf("constant #%d is not Utf8", i)
	}
	return c.Str, nil
}

// ClassNameAt returns the internal name of the Class entry at i.
func (p *ConstantPool) ClassNameAt(i uint16) (string, error) {
	c := p.Entry(i)
	if c == nil || c.Tag != TagClass {
		return "", fmt.Errorf("constant #%d is not a Class", i)
	}
	return p.Utf8At(c.Ref1)
}

// MemberRef is a resolved Fieldref or Methodref.
type MemberRef struct {
	Class      string
	Name       string
	Descriptor string
}

func (r MemberRef) String() string {
	return r.Class + "." + r.Name + ":" + r.Descriptor
}

// MemberAt resolves the Fieldref or Methodref at i.
func (p *ConstantPool) MemberAt(i uint16) (MemberRef, error) {
	c := p.Entry(i)
	if c == nil || (c.Tag != TagFieldref && c.Tag != TagMethodref) {
		return MemberRef{}, fmt.Errorf("constant #%d is not a member reference", i)
	}
	class, err := p.ClassNameAt(c.Ref1)
	if err != nil {
		return MemberRef{}, err
	}
	nt := p.Entry(c.Ref2)
	if nt == nil || nt.Tag != TagNameAndType {
		return MemberRef{}, fmt.Errorf("constant #%d is not a NameAndType", c.Ref2)
	}
	name, err := p.Utf8At(nt.Ref1)
	if err != nil {
		return MemberRef{}, err
	}
	desc, err := p.Utf8At(nt.Ref2)
	if err != nil {
		return MemberRef{}, err
	}
	return MemberRef{Class: class, Name: name, Descriptor: desc}, nil
}

// Describe renders the entry at i for disassembly.
func (p *ConstantPool) Describe(i uint16) string {
	c := p.Entry(i)
	if c == nil {
		return fmt.Sprintf("#%d <invalid>", i)
	}
	switch c.Tag {
	case TagUtf8:
		return fmt.Sprintf("%q", c.Str)
	case TagInteger:
		return fmt.Sprintf("int %d", c.Int)
	case TagFloat:
		return fmt.Sprintf("float %v", c.Float)
	case TagLong:
		return fmt.Sprintf("long %d", c.Long)
	case TagDouble:
		return fmt.Sprintf("double %v", c.Double)
	case TagClass:
		name, _ := p.ClassNameAt(i)
		return "class " + name
	case TagString:
		s, _ := p.Utf8At(c.Ref1)
		return fmt.Sprintf("%q", s)
	case TagFieldref, TagMethodref:
		ref, err := p.MemberAt(i)
		if err != nil {
			return err.Error()
		}
		return ref.String()
	case TagNameAndType:
		name, _ := p.Utf8At(c.Ref1)
		desc, _ := p.Utf8At(c.Ref2)
		return name + ":" + desc
	}
	return c.Tag.String()
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

func (p *ConstantPool) appendTo(buf []byte) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(p.entries)))
	for _, c := range p.entries[1:] {
		if c == nil {
			continue
		}
		buf = append(buf, byte(c.Tag))
		switch c.Tag {
		case TagUtf8:
			b := encodeModifiedUTF8(c.Str)
			buf = binary.BigEndian.AppendUint16(buf, uint16(len(b)))
			buf = append(buf, b...)
		case TagInteger:
			buf = binary.BigEndian.AppendUint32(buf, uint32(c.Int))
		case TagFloat:
			buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(c.Float))
		case TagLong:
			buf = binary.BigEndian.AppendUint64(buf, uint64(c.Long))
		case TagDouble:
			buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(c.Double))
		case TagClass, TagString:
			buf = binary.BigEndian.AppendUint16(buf, c.Ref1)
		case TagFieldref, TagMethodref, TagNameAndType:
			buf = binary.BigEndian.AppendUint16(buf, c.Ref1)
			buf = binary.BigEndian.AppendUint16(buf, c.Ref2)
		}
	}
	return buf
}

// encodeModifiedUTF8 encodes s the way the JVM stores Utf8 constants: NUL
// as two bytes and supplementary characters as surrogate pairs.
func encodeModifiedUTF8(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r == 0:
			out = append(out, 0xC0, 0x80)
		case r < 0x80:
			out = append(out, byte(r))
		case r < 0x10000:
			out = appendUnit(out, uint16(r))
		default:
			hi, lo := utf16.EncodeRune(r)
			out = appendUnit(out, uint16(hi))
			out = appendUnit(out, uint16(lo))
		}
	}
	return out
}

func appendUnit(out []byte, u uint16) []byte {
	if u < 0x800 {
		return append(out, 0xC0|byte(u>>6), 0x80|byte(u&0x3F))
	}
	return append(out, 0xE0|byte(u>>12), 0x80|byte((u>>6)&0x3F), 0x80|byte(u&0x3F))
}

func decodeModifiedUTF8(b []byte) (string, error) {
	var units []uint16
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80 && c != 0:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b):
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b):
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			return "", fmt.Errorf("malformed modified UTF-8 at byte %d", i)
		}
	}
	runes := utf16.Decode(units)
	buf := make([]byte, 0, len(runes))
	for _, r := range runes {
		buf = utf8.AppendRune(buf, r)
	}
	return string(buf), nil
}

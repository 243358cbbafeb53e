// Package classfile reads and writes JVM class files for the subset of the
// format the Sigma compiler produces: a constant pool, methods with Code
// attributes, and a SourceFile attribute.
package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const magic = 0xCAFEBABE

// Version 49 (Java 5) predates the StackMapTable requirement, so the
// type-inferring verifier accepts code without frame metadata.
const (
	MajorVersion = 49
	MinorVersion = 0
)

// Access flags.
const (
	AccPublic uint16 = 0x0001
	AccStatic uint16 = 0x0008
	AccSuper  uint16 = 0x0020
)

// Method is one method of a class.
type Method struct {
	Access     uint16
	Name       string
	Descriptor string
	Code       *CodeAttr // nil for abstract or native methods
}

// IsStatic reports whether the method has ACC_STATIC.
func (m *Method) IsStatic() bool {
	return m.Access&AccStatic != 0
}

// Class is a parsed or to-be-written class file.
type Class struct {
	Major, Minor uint16
	Pool         *ConstantPool
	Access       uint16
	Name         string // internal name, e.g. Main or pkg/Main
	SuperName    string
	Methods      []*Method
	SourceFile   string
}

// Method returns the method with the given name and descriptor, or nil.
func (c *Class) Method(name, desc string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Descriptor == desc {
			return m
		}
	}
	return nil
}

// MethodNamed returns the first method called name, or nil.
func (c *Class) MethodNamed(name string) *Method {
	for _, m := range c.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Writer
// ---------------------------------------------------------------------------

// Writer assembles a class. Constants referenced from method bodies must be
// interned into Pool() before Bytes is called.
type Writer struct {
	pool       *ConstantPool
	access     uint16
	name       string
	super      string
	sourceFile string
	methods    []*Method
	seen       map[string]bool
}

// NewWriter starts a public class extending java/lang/Object.
func NewWriter(name string) *Writer {
	return &Writer{
		pool:   NewConstantPool(),
		access: AccPublic | AccSuper,
		name:   name,
		super:  ObjectClass,
		seen:   make(map[string]bool),
	}
}

// Pool returns the class's constant pool.
func (w *Writer) Pool() *ConstantPool {
	return w.pool
}

// Name returns the class's internal name.
func (w *Writer) Name() string {
	return w.name
}

// SetSourceFile records a SourceFile attribute.
func (w *Writer) SetSourceFile(name string) {
	w.sourceFile = name
}

// AddMethod adds a method. A second method with the same name and
// descriptor is an error.
func (w *Writer) AddMethod(access uint16, name, desc string, code *CodeAttr) error {
	key := name + desc
	if w.seen[key] {
		return fmt.Errorf("duplicate method %s%s", name, desc)
	}
	if _, _, err := ParseMethodDescriptor(desc); err != nil {
		return err
	}
	w.seen[key] = true
	w.methods = append(w.methods, &Method{Access: access, Name: name, Descriptor: desc, Code: code})
	return nil
}

// Bytes serializes the class.
func (w *Writer) Bytes() ([]byte, error) {
	thisIdx := w.pool.Class(w.name)
	superIdx := w.pool.Class(w.super)
	codeIdx := w.pool.Utf8("Code")
	type methodIdx struct{ name, desc uint16 }
	idx := make([]methodIdx, len(w.methods))
	for i, m := range w.methods {
		idx[i] = methodIdx{w.pool.Utf8(m.Name), w.pool.Utf8(m.Descriptor)}
	}
	var sfName, sfValue uint16
	if w.sourceFile != "" {
		sfName, sfValue = w.pool.Utf8("SourceFile"), w.pool.Utf8(w.sourceFile)
	}
	if err := w.pool.Err(); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 1024)
	buf = binary.BigEndian.AppendUint32(buf, magic)
	buf = binary.BigEndian.AppendUint16(buf, MinorVersion)
	buf = binary.BigEndian.AppendUint16(buf, MajorVersion)
	buf = w.pool.appendTo(buf)
	buf = binary.BigEndian.AppendUint16(buf, w.access)
	buf = binary.BigEndian.AppendUint16(buf, thisIdx)
	buf = binary.BigEndian.AppendUint16(buf, superIdx)
	buf = binary.BigEndian.AppendUint16(buf, 0) // interfaces
	buf = binary.BigEndian.AppendUint16(buf, 0) // fields

	buf = binary.BigEndian.AppendUint16(buf, uint16(len(w.methods)))
	for i, m := range w.methods {
		buf = binary.BigEndian.AppendUint16(buf, m.Access)
		buf = binary.BigEndian.AppendUint16(buf, idx[i].name)
		buf = binary.BigEndian.AppendUint16(buf, idx[i].desc)
		if m.Code == nil {
			buf = binary.BigEndian.AppendUint16(buf, 0)
			continue
		}
		buf = binary.BigEndian.AppendUint16(buf, 1)
		buf = binary.BigEndian.AppendUint16(buf, codeIdx)
		// max_stack, max_locals, code_length, code, exception table, attributes
		buf = binary.BigEndian.AppendUint32(buf, uint32(2+2+4+len(m.Code.Code)+2+2))
		buf = binary.BigEndian.AppendUint16(buf, uint16(m.Code.MaxStack))
		buf = binary.BigEndian.AppendUint16(buf, uint16(m.Code.MaxLocals))
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(m.Code.Code)))
		buf = append(buf, m.Code.Code...)
		buf = binary.BigEndian.AppendUint16(buf, 0)
		buf = binary.BigEndian.AppendUint16(buf, 0)
	}

	if w.sourceFile == "" {
		buf = binary.BigEndian.AppendUint16(buf, 0)
		return buf, nil
	}
	buf = binary.BigEndian.AppendUint16(buf, 1)
	buf = binary.BigEndian.AppendUint16(buf, sfName)
	buf = binary.BigEndian.AppendUint32(buf, 2)
	buf = binary.BigEndian.AppendUint16(buf, sfValue)
	return buf, nil
}

// ---------------------------------------------------------------------------
// Reader
// ---------------------------------------------------------------------------

// ErrTruncated is returned when a class file ends early.
var ErrTruncated = errors.New("classfile: truncated")

type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.data) {
		r.err = ErrTruncated
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) u1() byte {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u2() uint16 {
	if b := r.take(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *reader) u4() uint32 {
	if b := r.take(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

// Parse reads a class file.
func Parse(data []byte) (*Class, error) {
	r := &reader{data: data}
	if r.u4() != magic {
		if r.err != nil {
			return nil, r.err
		}
		return nil, errors.New("classfile: bad magic number")
	}
	c := &Class{Minor: r.u2(), Major: r.u2()}

	pool, err := readPool(r)
	if err != nil {
		return nil, err
	}
	c.Pool = pool
	c.Access = r.u2()
	thisIdx, superIdx := r.u2(), r.u2()
	if r.err != nil {
		return nil, r.err
	}
	if c.Name, err = pool.ClassNameAt(thisIdx); err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	if superIdx != 0 {
		if c.SuperName, err = pool.ClassNameAt(superIdx); err != nil {
			return nil, fmt.Errorf("super_class: %w", err)
		}
	}

	r.take(2 * int(r.u2())) // interfaces
	fields := int(r.u2())
	for i := 0; i < fields && r.err == nil; i++ {
		r.take(6)
		skipAttributes(r)
	}

	methods := int(r.u2())
	for i := 0; i < methods && r.err == nil; i++ {
		m, err := readMethod(r, pool)
		if err != nil {
			return nil, err
		}
		c.Methods = append(c.Methods, m)
	}

	attrs := int(r.u2())
	for i := 0; i < attrs && r.err == nil; i++ {
		name, _ := pool.Utf8At(r.u2())
		body := r.take(int(r.u4()))
		if name == "SourceFile" && len(body) == 2 {
			c.SourceFile, _ = pool.Utf8At(binary.BigEndian.Uint16(body))
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return c, nil
}

func readPool(r *reader) (*ConstantPool, error) {
	count := int(r.u2())
	p := NewConstantPool()
	for len(p.entries) < count && r.err == nil {
		c := &Constant{Tag: Tag(r.u1())}
		switch c.Tag {
		case TagUtf8:
			s, err := decodeModifiedUTF8(r.take(int(r.u2())))
			if err != nil {
				return nil, err
			}
			c.Str = s
		case TagInteger:
			c.Int = int32(r.u4())
		case TagFloat:
			c.Float = math.Float32frombits(r.u4())
		case TagLong:
			c.Long = int64(uint64(r.u4())<<32 | uint64(r.u4()))
		case TagDouble:
			c.Double = math.Float64frombits(uint64(r.u4())<<32 | uint64(r.u4()))
		case TagClass, TagString:
			c.Ref1 = r.u2()
		case TagFieldref, TagMethodref, TagNameAndType:
			c.Ref1, c.Ref2 = r.u2(), r.u2()
		default:
			if r.err != nil {
				break
			}
			return nil, fmt.Errorf("classfile: unsupported constant tag %d at #%d", c.Tag, len(p.entries))
		}
		p.entries = append(p.entries, c)
		if c.wide() {
			p.entries = append(p.entries, nil)
		}
	}
	return p, r.err
}

func readMethod(r *reader, pool *ConstantPool) (*Method, error) {
	m := &Method{Access: r.u2()}
	nameIdx, descIdx := r.u2(), r.u2()
	if r.err != nil {
		return nil, r.err
	}
	var err error
	if m.Name, err = pool.Utf8At(nameIdx); err != nil {
		return nil, err
	}
	if m.Descriptor, err = pool.Utf8At(descIdx); err != nil {
		return nil, err
	}
	attrs := int(r.u2())
	for i := 0; i < attrs && r.err == nil; i++ {
		name, _ := pool.Utf8At(r.u2())
		length := int(r.u4())
		if name != "Code" {
			r.take(length)
			continue
		}
		code := &CodeAttr{MaxStack: int(r.u2()), MaxLocals: int(r.u2())}
		code.Code = r.take(int(r.u4()))
		r.take(8 * int(r.u2())) // exception table
		skipAttributes(r)
		m.Code = code
	}
	return m, r.err
}

func skipAttributes(r *reader) {
	n := int(r.u2())
	for i := 0; i < n && r.err == nil; i++ {
		r.u2()
		r.take(int(r.u4()))
	}
}

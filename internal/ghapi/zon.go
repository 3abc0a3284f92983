package ghapi

import (
	"fmt"
	"strconv"
	"strings"
)

// build.zig.zon 是 Zig 的匿名结构体字面量，不是 JSON。这里实现一个
// 只认识清单子集的递归下降解析器：结构体、字符串、枚举字面量与标量。

type zonField struct {
	name  string
	value zonValue
}

// zonValue 三选一：object、list 或标量 scalar。
type zonValue struct {
	object []zonField
	list   []zonValue
	scalar string
	isObj  bool
	isList bool
}

func (v zonValue) field(name string) (zonValue, bool) {
	for _, f := range v.object {
		if f.name == name {
			return f.value, true
		}
	}
	return zonValue{}, false
}

func (v zonValue) stringField(name string) string {
	f, found := v.field(name)
	if !found || f.isObj || f.isList {
		return ""
	}
	return f.scalar
}

// parseZon 解析清单并抽取目录关心的字段，未知字段一律跳过。
func parseZon(raw []byte) (*Manifest, error) {
	p := &zonParser{src: string(raw)}
	root, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, fmt.Errorf("trailing data at offset %d", p.pos)
	}
	if !root.isObj {
		return nil, fmt.Errorf("manifest root is not a struct literal")
	}

	manifest := &Manifest{
		Name:         root.stringField("name"),
		Version:      root.stringField("version"),
		Dependencies: []Dependency{},
	}

	deps, found := root.field("dependencies")
	if found && deps.isObj {
		for _, f := range deps.object {
			if !f.value.isObj {
				continue
			}
			manifest.Dependencies = append(manifest.Dependencies, Dependency{
				Name: f.name,
				URL:  f.value.stringField("url"),
				Hash: f.value.stringField("hash"),
				Path: f.value.stringField("path"),
			})
		}
	}
	return manifest, nil
}

type zonParser struct {
	src string
	pos int
}

func (p *zonParser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			p.pos++
		case c == '/' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '/':
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *zonParser) errf(format string, args ...any) error {
	return fmt.Errorf("offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

// parseValue 解析一个值：.{...} 结构体或元组、"..." 字符串、.name 枚举
// 字面量，或裸标量（数字、true、false、null）。
func (p *zonParser) parseValue() (zonValue, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return zonValue{}, p.errf("unexpected end of input")
	}

	switch c := p.src[p.pos]; {
	case c == '.' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '{':
		p.pos += 2
		return p.parseAggregate()
	case c == '"':
		s, err := p.parseString()
		if err != nil {
			return zonValue{}, err
		}
		return zonValue{scalar: s}, nil
	case c == '.':
		p.pos++
		name, err := p.parseIdent()
		if err != nil {
			return zonValue{}, err
		}
		return zonValue{scalar: name}, nil
	default:
		start := p.pos
		for p.pos < len(p.src) && !strings.ContainsRune(" \t\r\n,}", rune(p.src[p.pos])) {
			p.pos++
		}
		if p.pos == start {
			return zonValue{}, p.errf("unexpected character %q", c)
		}
		return zonValue{scalar: p.src[start:p.pos]}, nil
	}
}

// parseAggregate 读取 .{ 之后的内容。带 .name = 的是结构体字段，
// 否则按元组元素处理（paths 列表就是这种形式）。
func (p *zonParser) parseAggregate() (zonValue, error) {
	value := zonValue{isObj: true, object: []zonField{}}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return zonValue{}, p.errf("unterminated struct literal")
		}
		if p.src[p.pos] == '}' {
			p.pos++
			return value, nil
		}

		if name, isField := p.tryFieldName(); isField {
			fieldValue, err := p.parseValue()
			if err != nil {
				return zonValue{}, err
			}
			value.object = append(value.object, zonField{name: name, value: fieldValue})
		} else {
			element, err := p.parseValue()
			if err != nil {
				return zonValue{}, err
			}
			value.isObj = false
			value.isList = true
			value.list = append(value.list, element)
		}

		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == ',' {
			p.pos++
		}
	}
}

// tryFieldName 尝试读取 “.name =”，不匹配则回退并返回 false。
func (p *zonParser) tryFieldName() (string, bool) {
	save := p.pos
	if p.pos >= len(p.src) || p.src[p.pos] != '.' {
		return "", false
	}
	if p.pos+1 < len(p.src) && p.src[p.pos+1] == '{' {
		return "", false
	}
	p.pos++
	name, err := p.parseIdent()
	if err != nil {
		p.pos = save
		return "", false
	}
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '=' {
		p.pos = save
		return "", false
	}
	p.pos++
	return name, true
}

// parseIdent 读取标识符，支持 @"..." 引用形式的字段名。
func (p *zonParser) parseIdent() (string, error) {
	if p.pos < len(p.src) && p.src[p.pos] == '@' {
		p.pos++
		return p.parseString()
	}
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return "", p.errf("expected identifier")
	}
	return p.src[start:p.pos], nil
}

func (p *zonParser) parseString() (string, error) {
	if p.pos >= len(p.src) || p.src[p.pos] != '"' {
		return "", p.errf("expected string")
	}
	start := p.pos
	p.pos++
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '\\':
			p.pos += 2
		case '"':
			p.pos++
			unquoted, err := strconv.Unquote(p.src[start:p.pos])
			if err != nil {
				return "", p.errf("bad string literal: %v", err)
			}
			return unquoted, nil
		default:
			p.pos++
		}
	}
	return "", p.errf("unterminated string")
}

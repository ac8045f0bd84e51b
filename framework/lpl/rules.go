package lpl

import (
	"strings"

	"go.uber.org/zap"
)

func openClass(p *parser, ln sourceLine, m []string) *frame {
	name := m[1]
	if p.class != nil && p.class.Name != name {
		p.logger.Warn("second class declaration ignored for linking",
			zap.String("file", p.file),
			zap.String("class", p.class.Name),
			zap.String("declared", name))
		sym := p.newSymbol(ln, name, KindClass, false)
		sym.Container = ""
		return p.open(ln, blockLeaf, sym, nil)
	}
	cache := p.ensureClass(name)
	sym := p.newSymbol(ln, name, KindClass, false)
	sym.Container = ""
	cache.Definitions = append(cache.Definitions, sym)
	return p.open(ln, blockClass, sym, &classScope{cache: cache})
}

func openClassSection(p *parser, ln sourceLine, m []string) *frame {
	block := classHeadings[m[1]]
	sym := p.newSymbol(ln, m[1], KindSection, false)
	return p.open(ln, block, sym, nil)
}

func openOtherSection(p *parser, ln sourceLine, m []string) *frame {
	sym := p.newSymbol(ln, m[1], KindSection, false)
	return p.open(ln, blockOther, sym, nil)
}

func fieldOpener(kind SymbolKind, storage FieldStorage) func(*parser, sourceLine, []string) *frame {
	detail := storage == StoragePersistent || storage == StorageTransient || storage == StorageLocal
	return func(p *parser, ln sourceLine, m []string) *frame {
		sym := p.newSymbol(ln, m[1], kind, detail)
		if p.class != nil {
			p.class.Fields[m[1]] = &FieldCache{
				Definition:  sym,
				HoverText:   ln.raw,
				ImportAlias: ln.annot,
				Storage:     storage,
			}
		}
		return p.open(ln, blockLeaf, sym, nil)
	}
}

func openRelation(p *parser, ln sourceLine, m []string) *frame {
	sym := p.newSymbol(ln, m[1], KindInterface, false)
	rel := &RelationCache{
		Definition:  sym,
		TargetClass: m[2],
		HoverText:   ln.raw,
	}
	if p.class != nil {
		p.class.Relations[m[1]] = rel
	}
	return p.open(ln, blockRelation, sym, &relationScope{relation: rel})
}

func setRelationTarget(p *parser, ln sourceLine, m []string) *frame {
	rs := nearest[*relationScope](p.stack)
	if rs == nil {
		return nil
	}
	rs.relation.TargetClass = m[1]
	rs.relation.TargetRelation = m[2]
	return nil
}

func openSet(p *parser, ln sourceLine, m []string) *frame {
	sym := p.newSymbol(ln, m[1], KindKey, false)
	if p.class != nil {
		p.class.Sets[m[1]] = sym
	}
	return p.open(ln, blockLeaf, sym, nil)
}

func openRuleBlock(p *parser, ln sourceLine, m []string) *frame {
	sym := p.newSymbol(ln, m[1], KindFunction, false)
	if p.class != nil {
		p.class.RuleBlocks[m[1]] = sym
	}
	return p.open(ln, blockLeaf, sym, nil)
}

func openAction(p *parser, ln sourceLine, m []string) *frame {
	name := m[1]
	sym := p.newSymbol(ln, name, KindMethod, false)
	action := newActionCache(sym, ln.raw)
	action.ImportAlias = ln.annot
	if p.class != nil {
		p.class.Actions[name] = action
		if ln.annot != "" && strings.HasPrefix(name, importActionPrefix) {
			src := p.class.ImportSource
			if src == nil || !src.Explicit {
				p.class.ImportSource = &ImportSource{
					File:        p.file,
					TargetClass: ln.annot,
					ViaAction:   name,
					Explicit:    true,
				}
			}
		}
	}
	return p.open(ln, blockAction, sym, &actionScope{action: action})
}

func openActionSection(p *parser, ln sourceLine, m []string) *frame {
	sym := p.newSymbol(ln, m[1], KindSection, true)
	return p.open(ln, actionHeadings[m[1]], sym, nil)
}

func markRestricted(p *parser, ln sourceLine, m []string) *frame {
	if as := nearest[*actionScope](p.stack); as != nil {
		as.action.Restricted = true
	}
	return nil
}

func markValidWhen(p *parser, ln sourceLine, m []string) *frame {
	if as := nearest[*actionScope](p.stack); as != nil {
		expr := strings.TrimSpace(m[1])
		if strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
			expr = strings.TrimSpace(expr[1 : len(expr)-1])
		}
		as.action.ValidWhen = expr
	}
	return nil
}

func actionFieldOpener(parameter bool) func(*parser, sourceLine, []string) *frame {
	return func(p *parser, ln sourceLine, m []string) *frame {
		sym := p.newSymbol(ln, m[1], KindVariable, true)
		if as := nearest[*actionScope](p.stack); as != nil {
			fc := &FieldCache{
				Definition:  sym,
				HoverText:   ln.raw,
				ImportAlias: ln.annot,
				Storage:     StorageLocal,
			}
			if parameter {
				as.action.Parameters[m[1]] = fc
			} else {
				as.action.LocalFields[m[1]] = fc
			}
		}
		return p.open(ln, blockLeaf, sym, nil)
	}
}

func openActionRuleBlock(p *parser, ln sourceLine, m []string) *frame {
	sym := p.newSymbol(ln, m[1], KindFunction, true)
	if as := nearest[*actionScope](p.stack); as != nil {
		as.action.RuleBlocks[m[1]] = sym
	}
	return p.open(ln, blockLeaf, sym, nil)
}

// importActionPrefix names the actions whose Create/Import invocations
// make their class an import source.
const importActionPrefix = "CreateSingle"

func markImportSource(p *parser, ln sourceLine, m []string) *frame {
	as := nearest[*actionScope](p.stack)
	if as == nil || p.class == nil {
		return nil
	}
	name := as.action.Definition.Name
	if !strings.HasPrefix(name, importActionPrefix) {
		return nil
	}
	target := m[2]
	src := p.class.ImportSource
	switch {
	case src == nil:
		p.class.ImportSource = &ImportSource{
			File:        p.file,
			TargetClass: target,
			ViaAction:   name,
		}
	case src.Explicit:
	case src.TargetClass != target:
		src.Ambiguous = true
		src.TargetClass = ""
	}
	return nil
}

func openStateCycle(p *parser, ln sourceLine, m []string) *frame {
	sym := p.newSymbol(ln, m[1], KindEnum, false)
	return p.open(ln, blockStateCycle, sym, nil)
}

func openState(p *parser, ln sourceLine, m []string) *frame {
	sym := p.newSymbol(ln, m[1], KindEnumMember, false)
	return p.open(ln, blockLeaf, sym, nil)
}

func openUIContainer(p *parser, ln sourceLine, m []string) *frame {
	name := m[1]
	sym := p.newSymbol(ln, name, KindInterface, false)
	sc := &uiScope{}
	if m[2] == "List" {
		sc.list = &ListCache{
			Definition: sym,
			Actions:    make(map[string]ActionState),
		}
		if parent := nearest[*uiScope](p.stack); parent != nil && parent.list != nil {
			sc.list.Parent = parent.list.Definition.Name
		}
		if p.class != nil {
			p.class.Lists[name] = sc.list
		}
	} else {
		sc.form = &FormCache{Definition: sym}
		if p.class != nil {
			p.class.Forms[name] = sc.form
		}
	}
	return p.open(ln, blockUI, sym, sc)
}

func openListActions(p *parser, ln sourceLine, m []string) *frame {
	sym := p.newSymbol(ln, m[0], KindSection, true)
	return p.open(ln, blockListActions, sym, nil)
}

func bindFormAction(p *parser, ln sourceLine, m []string) *frame {
	if sc := nearest[*uiScope](p.stack); sc != nil && sc.form != nil {
		sc.form.BoundAction = m[1]
	}
	return nil
}

func listActionSetter(state ActionState) func(*parser, sourceLine, []string) *frame {
	return func(p *parser, ln sourceLine, m []string) *frame {
		if sc := nearest[*uiScope](p.stack); sc != nil && sc.list != nil {
			sc.list.setAction(m[1], state)
		}
		return nil
	}
}

func openKeyField(p *parser, ln sourceLine, m []string) *frame {
	sym := p.newSymbol(ln, m[1], KindKey, false)
	key := &KeyFieldCache{Definition: sym, HoverText: ln.raw}
	p.result.KeyField = key
	return p.open(ln, blockKeyField, sym, &keyFieldScope{key: key})
}

func setKeyClass(p *parser, ln sourceLine, m []string) *frame {
	ks := nearest[*keyFieldScope](p.stack)
	if ks == nil || ks.key.ClassName != "" {
		return nil
	}
	ks.key.ClassName = m[1]
	if p.className == "" {
		p.className = m[1]
	}
	ks.key.Definition.Container = m[1]
	return nil
}

func openKeyContext(p *parser, ln sourceLine, m []string) *frame {
	sym := p.newSymbol(ln, m[0], KindSection, true)
	return p.open(ln, blockKeyContext, sym, nil)
}

func openContextField(p *parser, ln sourceLine, m []string) *frame {
	sym := p.newSymbol(ln, m[1], KindField, true)
	if ks := nearest[*keyFieldScope](p.stack); ks != nil {
		ks.key.Context = append(ks.key.Context, sym)
	}
	return p.open(ln, blockLeaf, sym, nil)
}

func openRepresentation(p *parser, ln sourceLine, m []string) *frame {
	sym := p.newSymbol(ln, m[0], KindSection, true)
	return p.open(ln, blockRepresentation, sym, nil)
}

func appendRepresentation(p *parser, ln sourceLine, m []string) *frame {
	if ks := nearest[*keyFieldScope](p.stack); ks != nil {
		ks.key.Representation = append(ks.key.Representation, ln.raw)
	}
	return nil
}

// close feeds the key field and its context fields into the referenced
// class's field map.
func (ks *keyFieldScope) close(p *parser) {
	key := ks.key
	if len(key.Representation) > 0 {
		key.HoverText = strings.Join(key.Representation, "\n")
	}
	if key.ClassName == "" {
		return
	}
	cache := p.ensureClass(key.ClassName)
	if cache.Name != key.ClassName {
		return
	}
	cache.Definitions = append(cache.Definitions, key.Definition)
	cache.IndexSymbol(p.file, *key.Definition)
	cache.Fields[key.Definition.Name] = &FieldCache{
		Definition: key.Definition,
		HoverText:  key.HoverText,
		Storage:    StorageKey,
	}
	for _, sym := range key.Context {
		sym.Container = key.ClassName
		if _, exists := cache.Fields[sym.Name]; exists {
			continue
		}
		cache.Fields[sym.Name] = &FieldCache{
			Definition: sym,
			HoverText:  sym.Name + " (context of " + key.Definition.Name + ")",
			Storage:    StorageContext,
		}
	}
}

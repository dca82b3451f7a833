package orchestrator

import (
	"fmt"
	"strings"
)

// RenderPrompt substitutes `{placeholder}` tokens in desc.PromptTemplate,
// preferring step.Input over shared (§6 "prompt.template: Prompt body with
// {placeholder} substitutions from parameters"; a sequential step's
// `{result}` placeholder binds to a prior step's SharedContext write). A
// placeholder bound in neither source is left untouched rather than
// silently dropped, so a typo'd name in an agent's KDL file is visible in
// its rendered prompt instead of vanishing. The result is truncated to
// desc.ContextMaxContextSize bytes when that cap is set (§6
// "context.max_context_size").
func RenderPrompt(desc *AgentDescriptor, shared *SharedContext, step Step) string {
	rendered := substitutePlaceholders(desc.PromptTemplate, step.Input, shared)
	if desc.ContextMaxContextSize > 0 && len(rendered) > desc.ContextMaxContextSize {
		rendered = rendered[:desc.ContextMaxContextSize]
	}
	return rendered
}

func substitutePlaceholders(template string, params map[string]any, shared *SharedContext) string {
	var b strings.Builder
	i := 0
	for i < len(template) {
		open := strings.IndexByte(template[i:], '{')
		if open < 0 {
			b.WriteString(template[i:])
			break
		}
		open += i
		end := strings.IndexByte(template[open:], '}')
		if end < 0 {
			b.WriteString(template[i:])
			break
		}
		end += open
		b.WriteString(template[i:open])

		name := template[open+1 : end]
		switch {
		case name == "":
			b.WriteString(template[open : end+1])
		case params != nil && hasKey(params, name):
			fmt.Fprint(&b, params[name])
		default:
			if v, ok := shared.Get(name); ok {
				fmt.Fprint(&b, v)
			} else {
				b.WriteString(template[open : end+1])
			}
		}
		i = end + 1
	}
	return b.String()
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

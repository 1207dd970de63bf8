package config

import "fmt"

// Resolve merges a config file's overrides onto its base template and
// returns the fully resolved settings the build pipeline consumes.
func Resolve(cfg *ConfigFile) (*Template, error) {
	name := cfg.Template
	if name == "" {
		name = DefaultTemplateName
	}

	template, ok := TemplateByName(name)
	if !ok {
		return nil, fmt.Errorf("template %q not found (available: %s)", name, templateNameList())
	}

	if p := cfg.Profile; p != nil {
		if p.OptLevel != nil {
			template.Profile.OptLevel = *p.OptLevel
		}
		if p.LTO != nil {
			template.Profile.LTO = *p.LTO
		}
		if p.Strip != nil {
			template.Profile.Strip = *p.Strip
		}
		if p.CodegenUnits != nil {
			template.Profile.CodegenUnits = *p.CodegenUnits
		}
		if p.Panic != nil {
			template.Profile.Panic = *p.Panic
		}
	}

	if w := cfg.WasmOpt; w != nil && w.Flags != nil {
		template.WasmOpt.Flags = append([]string(nil), w.Flags...)
	}

	return &template, nil
}

// FromTemplate builds a config file that pins every setting of the given
// template, used by init to write an explicit starting point.
func FromTemplate(t *Template) *ConfigFile {
	optLevel := t.Profile.OptLevel
	lto := t.Profile.LTO
	strip := t.Profile.Strip
	codegenUnits := t.Profile.CodegenUnits
	panicMode := t.Profile.Panic

	return &ConfigFile{
		Template: t.Name,
		Profile: &ProfileSettings{
			OptLevel:     &optLevel,
			LTO:          &lto,
			Strip:        &strip,
			CodegenUnits: &codegenUnits,
			Panic:        &panicMode,
		},
		WasmOpt: &WasmOptSettings{
			Flags: append([]string(nil), t.WasmOpt.Flags...),
		},
	}
}

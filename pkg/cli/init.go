package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/wasm-slim/wasm-slim/pkg/config"
	"github.com/wasm-slim/wasm-slim/pkg/console"
	"github.com/wasm-slim/wasm-slim/pkg/logger"
	"github.com/wasm-slim/wasm-slim/pkg/styles"
	"github.com/wasm-slim/wasm-slim/pkg/tty"
)

var initLog = logger.New("cli:init")

// NewInitCommand creates the init command, which writes .wasm-slim.toml
// from a template.
func NewInitCommand() *cobra.Command {
	var templateName string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .wasm-slim.toml configuration file",
		Long: `Create a project configuration from one of the built-in templates.

When run on a terminal without --template, a picker lists the templates.
The generated file pins the template name; individual settings can be
overridden by editing the file afterwards.

Examples:
  wasm-slim init                         # Pick a template interactively
  wasm-slim init --template aggressive   # Use a specific template
  wasm-slim init --force                 # Replace an existing config`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}

			interactive := !cmd.Flags().Changed("template") &&
				tty.IsStdinTerminal() && !IsRunningInCI()
			return runInit(root, templateName, force, interactive)
		},
	}

	cmd.Flags().StringVarP(&templateName, "template", "t", config.DefaultTemplateName, "Optimization template to start from")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")

	_ = cmd.RegisterFlagCompletionFunc("template",
		func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return config.TemplateNames(), cobra.ShellCompDirectiveNoFileComp
		})

	return cmd
}

func runInit(root, templateName string, force, interactive bool) error {
	if config.Exists(root) && !force {
		fmt.Fprintln(os.Stderr, console.FormatWarningMessage("Config file already exists"))
		fmt.Fprintln(os.Stderr, "   Delete it, edit it manually, or rerun with --force to overwrite.")
		return nil
	}

	if interactive {
		chosen, err := promptTemplate(templateName)
		if err != nil {
			return fmt.Errorf("failed to read template choice: %w", err)
		}
		templateName = chosen
	}

	tmpl, ok := config.TemplateByName(templateName)
	if !ok {
		return &TemplateNotFoundError{Name: templateName}
	}
	initLog.Printf("Initializing config with template %q", tmpl.Name)

	if err := config.Save(config.FromTemplate(&tmpl), root); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, console.FormatSuccessMessage("Created "+config.ConfigFileName))
	renderTemplateDetails(os.Stderr, tmpl)
	renderNextSteps(os.Stderr)
	renderAvailableTemplates(os.Stderr, tmpl.Name)
	return nil
}

func promptTemplate(preselected string) (string, error) {
	templates := config.Templates()
	options := make([]huh.Option[string], 0, len(templates))
	for _, t := range templates {
		options = append(options, huh.NewOption(fmt.Sprintf("%s - %s", t.Name, t.Description), t.Name))
	}

	choice := preselected
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose an optimization template").
				Description("The template seeds the cargo profile and wasm-opt settings.").
				Options(options...).
				Value(&choice),
		),
	).WithAccessible(console.IsAccessibleMode())

	if err := form.Run(); err != nil {
		return "", err
	}
	return choice, nil
}

func renderTemplateDetails(w io.Writer, tmpl config.Template) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Template: %s (%s)\n", styles.Bold.Render(tmpl.Name), tmpl.Description)
	fmt.Fprintln(w, "   Profile:")
	fmt.Fprintf(w, "      opt-level = %q\n", tmpl.Profile.OptLevel)
	fmt.Fprintf(w, "      lto = %q\n", tmpl.Profile.LTO)
	fmt.Fprintf(w, "      codegen-units = %d\n", tmpl.Profile.CodegenUnits)
	fmt.Fprintf(w, "      panic = %q\n", tmpl.Profile.Panic)
	fmt.Fprintf(w, "      strip = %t\n", tmpl.Profile.Strip)
	fmt.Fprintf(w, "   wasm-opt: %d flag(s)\n", len(tmpl.WasmOpt.Flags))

	if len(tmpl.DependencyHints) > 0 {
		fmt.Fprintln(w, "   Dependency hints:")
		for _, hint := range tmpl.DependencyHints {
			fmt.Fprintln(w, "   "+console.FormatListItem(hint))
		}
	}
	if len(tmpl.Notes) > 0 {
		fmt.Fprintln(w, "   Notes:")
		for _, note := range tmpl.Notes {
			fmt.Fprintln(w, "   "+console.FormatListItem(note))
		}
	}
}

func renderNextSteps(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.Bold.Render("Next steps:"))
	fmt.Fprintln(w, "   1. Review "+config.ConfigFileName+" and tune the [size-budget] section")
	fmt.Fprintln(w, "   2. Run 'wasm-slim build' to optimize and build")
	fmt.Fprintln(w, "   3. Run 'wasm-slim ci init' to enforce the budget on every push")
}

func renderAvailableTemplates(w io.Writer, chosen string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.Bold.Render("Available templates:"))
	for _, t := range config.Templates() {
		indicator := " "
		if t.Name == chosen {
			indicator = styles.Success.Render("→")
		}
		fmt.Fprintf(w, "   %s %s - %s\n", indicator, t.Name, t.Description)
	}
}

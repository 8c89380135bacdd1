// Package main provides a CLI tool for the form runtime.
// This is useful for testing form definitions and batch rendering.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/dlovans/formrt/internal/logging"
	"github.com/dlovans/formrt/pkg/formrt"
	"github.com/dlovans/formrt/pkg/lint"
)

var log zerolog.Logger

func main() {
	log = logging.New(os.Stderr, os.Getenv("LOG_LEVEL"), true)

	// Define flags
	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	runFile := runCmd.String("file", "", "Request file {form, answers, params} as JSON or YAML (or use stdin)")
	runParams := runCmd.String("params", "", "Extra params as name=value pairs separated by '&'")

	layoutCmd := flag.NewFlagSet("layout", flag.ExitOnError)
	layoutFile := layoutCmd.String("file", "", "Form definition file")
	layoutColumns := layoutCmd.Int("columns", 0, "Override the form's column count")

	lintCmd := flag.NewFlagSet("lint", flag.ExitOnError)
	lintFile := lintCmd.String("file", "", "Form definition file to lint")

	calcCmd := flag.NewFlagSet("calc", flag.ExitOnError)
	calcFile := calcCmd.String("file", "", "Request file whose form fields and answers the formula uses")
	calcExpr := calcCmd.String("expr", "", "Formula expression, e.g. '{Quantity} * {Price}'")
	calcFormat := calcCmd.String("format", "number", "Display format: number, currency or percentage")
	calcDecimals := calcCmd.Int("decimals", 2, "Decimal places")

	verifyCmd := flag.NewFlagSet("verify", flag.ExitOnError)
	verifyResult := verifyCmd.String("result", "", "Saved render result")
	verifyRequest := verifyCmd.String("request", "", "Request the result was rendered from")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCmd.Parse(os.Args[2:])
		handleRun(*runFile, *runParams)

	case "layout":
		layoutCmd.Parse(os.Args[2:])
		handleLayout(*layoutFile, *layoutColumns)

	case "lint":
		lintCmd.Parse(os.Args[2:])
		handleLint(*lintFile)

	case "calc":
		calcCmd.Parse(os.Args[2:])
		handleCalc(*calcFile, *calcExpr, *calcFormat, *calcDecimals)

	case "verify":
		verifyCmd.Parse(os.Args[2:])
		handleVerify(*verifyResult, *verifyRequest)

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("formrt - Form Runtime Evaluation Engine")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  formrt run [-file request.json] [-params 'utm_source=ads&ref=x']")
	fmt.Println("  formrt layout -file form.yaml [-columns 4]")
	fmt.Println("  formrt lint -file form.json")
	fmt.Println("  formrt calc -file request.json -expr '{Quantity} * {Price}' [-format currency] [-decimals 2]")
	fmt.Println("  formrt verify -result result.json -request request.json")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  cat request.json | formrt run")
	fmt.Println("  formrt lint -file form.yaml")
	fmt.Println("  formrt calc -file order.json -expr '{Quantity} * {Price} + {Tax}' -format currency")
}

// readInput reads a file, or stdin when path is empty, and returns it as
// JSON. YAML input is converted.
func readInput(path string) ([]byte, error) {
	var input []byte
	var err error

	if path != "" {
		input, err = os.ReadFile(path)
	} else {
		input, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	return toJSON(input, filepath.Ext(path))
}

// toJSON converts YAML documents to JSON. Input that already looks like JSON
// and is not named .yaml/.yml passes through untouched.
func toJSON(input []byte, ext string) ([]byte, error) {
	trimmed := bytes.TrimSpace(input)
	isYAML := ext == ".yaml" || ext == ".yml"
	if !isYAML && len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return trimmed, nil
	}

	var doc any
	if err := yaml.Unmarshal(input, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	return out, nil
}

// parseParams reads "a=1&b=2" into a map. Later names win.
func parseParams(s string) map[string]string {
	params := make(map[string]string)
	for _, pair := range strings.Split(s, "&") {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		params[name] = value
	}
	return params
}

func readRequest(path string) formrt.Request {
	input, err := readInput(path)
	if err != nil {
		log.Fatal().Err(err).Msg("read request")
	}
	var req formrt.Request
	if err := json.Unmarshal(input, &req); err != nil {
		log.Fatal().Err(err).Msg("decode request")
	}
	return req
}

func readForm(path string) formrt.Form {
	input, err := readInput(path)
	if err != nil {
		log.Fatal().Err(err).Msg("read form")
	}
	var form formrt.Form
	if err := json.Unmarshal(input, &form); err != nil {
		log.Fatal().Err(err).Msg("decode form")
	}
	return form
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("encode output")
	}
	fmt.Println(string(out))
}

func handleRun(filePath, extraParams string) {
	req := readRequest(filePath)

	params := req.Params
	if extraParams != "" {
		if params == nil {
			params = make(map[string]string)
		}
		for name, value := range parseParams(extraParams) {
			params[name] = value
		}
	}

	result := formrt.Evaluate(&req.Form, req.Answers, params, nil)
	for _, d := range result.Diagnostics {
		log.Warn().Str("field", d.FieldID).Str("kind", string(d.Kind)).Msg(d.Message)
	}
	printJSON(result)
}

func handleLayout(filePath string, columns int) {
	form := readForm(filePath)

	cfg := formrt.DefaultLayoutConfig()
	if form.Layout != nil {
		cfg = *form.Layout
	}
	if columns > 0 {
		cfg.Columns = columns
	}

	// Every field is packed as if visible; hidden-type fields never render.
	fields := make([]formrt.Field, 0, len(form.Fields))
	for _, f := range formrt.SortFields(form.Fields) {
		if f.Type != formrt.TypeHidden {
			fields = append(fields, f)
		}
	}

	printJSON(map[string]any{
		"layout": formrt.Pack(fields, cfg, nil),
		"grid":   formrt.Grid(cfg),
	})
}

func handleLint(filePath string) {
	input, err := readInput(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("read form")
	}

	result, err := lint.Run(string(input))
	if err != nil {
		log.Fatal().Err(err).Msg("lint")
	}

	if len(result.Issues) == 0 {
		fmt.Println("✓ No issues found")
		return
	}

	// Print issues
	for _, issue := range result.Issues {
		icon := "⚠"
		if issue.Severity == "error" {
			icon = "✗"
		}
		location := ""
		if issue.Field != "" {
			location = fmt.Sprintf(" [field: %s]", issue.Field)
		}
		if issue.Rule != "" {
			location += fmt.Sprintf(" [rule: %s]", issue.Rule)
		}
		fmt.Printf("%s %s%s: %s\n", icon, issue.Severity, location, issue.Message)
	}

	if !result.Valid {
		os.Exit(1)
	}
}

func handleCalc(filePath, expression, format string, decimals int) {
	if expression == "" {
		fmt.Fprintln(os.Stderr, "Error: -expr is required")
		os.Exit(1)
	}
	req := readRequest(filePath)

	if err := formrt.ValidateFormula(expression, req.Form.Fields); err != nil {
		fmt.Printf("✗ %v\n", err)
		os.Exit(1)
	}

	result := formrt.Calculate(req.Form.Fields, req.Answers, formrt.CalculationFormula{
		Expression:    expression,
		Format:        formrt.Format(strings.ToLower(format)),
		DecimalPlaces: decimals,
	})
	fmt.Printf("%s = %s\n", formrt.Substitute(expression, req.Form.Fields, req.Answers), result.Display)
}

func handleVerify(resultPath, requestPath string) {
	if resultPath == "" || requestPath == "" {
		fmt.Fprintln(os.Stderr, "Error: Both -result and -request flags are required")
		os.Exit(1)
	}

	resultJSON, err := readInput(resultPath)
	if err != nil {
		log.Fatal().Err(err).Msg("read result")
	}
	requestJSON, err := readInput(requestPath)
	if err != nil {
		log.Fatal().Err(err).Msg("read request")
	}

	valid, err := formrt.Verify(string(resultJSON), string(requestJSON))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Verification failed: %v\n", err)
		os.Exit(1)
	}

	if valid {
		fmt.Println("✓ Render verified: result is reproducible from the request")
	} else {
		fmt.Println("✗ Render verification failed")
		os.Exit(1)
	}
}

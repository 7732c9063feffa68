// Command indc is the AOT compiler's CLI: lex, parse, analyze, lower to
// LLVM IR, and hand the result to clang for linking.
package main

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/exec"
	"strings"

	"github.com/alecthomas/repr"
	"github.com/urfave/cli/v2"
	"github.com/ztrue/tracerr"
	"gopkg.in/yaml.v2"

	"github.com/indlang/indc/diag"
	"github.com/indlang/indc/lexer"
	"github.com/indlang/indc/lower"
	"github.com/indlang/indc/parser"
	"github.com/indlang/indc/sema"
)

// indcModule is the project manifest written by `indc init` and read by
// `indc build`.
type indcModule struct {
	Package string `yaml:"Package"`
}

const manifestFile = "Indc Module Information"

func main() {
	app := &cli.App{
		Name:  "indc",
		Usage: "indc — AOT compiler for the indentation-structured core language",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output path"},
			&cli.BoolFlag{Name: "emit-llvm", Usage: "emit textual IR to the output path instead of linking"},
			&cli.BoolFlag{Name: "emit-ir", Usage: "also emit textual IR to <stem>.ll alongside the object file"},
			&cli.BoolFlag{Name: "ast", Usage: "parse only; print nothing, exit 0 on success"},
			&cli.BoolFlag{Name: "tokens", Usage: "lex only; print tokens and exit 0"},
		},
		ExitErrHandler: func(context *cli.Context, err error) {
			if err == nil {
				return
			}
			tracerr.PrintSourceColor(err)
			code := 1
			if ec, ok := err.(cli.ExitCoder); ok {
				code = ec.ExitCode()
			}
			os.Exit(code)
		},
		Action: defaultAction,
		Commands: []*cli.Command{
			initCommand,
			buildCommand,
			typeinfoCommand,
		},
	}
	app.Run(os.Args)
}

// defaultAction handles the bare `indc <source>` invocation: lex,
// optionally stop at --tokens; parse, optionally stop at --ast;
// analyze; lower; emit IR or link, per the --emit-llvm/--emit-ir flags.
func defaultAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("a source path is required", 1)
	}

	src, err := ioutil.ReadFile(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("cannot read %s: %v", path, err), 1)
	}

	toks := lexer.Tokenize(src, path)
	if c.Bool("tokens") {
		for _, t := range toks {
			fmt.Println(t.String())
		}
		return nil
	}

	p := parser.New(toks, path)
	prog := p.Parse()
	if len(p.Errors()) != 0 {
		for _, e := range p.Errors() {
			fmt.Fprintln(os.Stderr, e)
		}
		return cli.Exit("parse failed", 1)
	}
	if c.Bool("ast") {
		return nil
	}

	reporter := diag.NewReporter(string(src), path)
	if !sema.NewAnalyzer(reporter).Analyze(prog) {
		fmt.Fprint(os.Stderr, reporter.Render())
		return cli.Exit("semantic analysis failed", 1)
	}

	mod, err := lower.NewModule(prog)
	if err != nil {
		return cli.Exit(fmt.Sprintf("lowering failed: %v", err), 1)
	}
	ir := mod.String()

	out := c.String("output")
	if out == "" {
		out = defaultOutputName()
	}

	if c.Bool("emit-llvm") {
		return writeFile(out, ir)
	}

	if c.Bool("emit-ir") {
		if err := writeFile(stem(path)+".ll", ir); err != nil {
			return err
		}
	}

	return linkModule(ir, out, false, nil)
}

func defaultOutputName() string {
	if os.PathSeparator == '\\' {
		return "a.exe"
	}
	return "a.out"
}

func stem(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base
}

func writeFile(path, contents string) error {
	return ioutil.WriteFile(path, []byte(contents), 0o644)
}

// linkModule writes ir to a temp .ll file and invokes clang, linking
// the compiled runtime shim and libm/libc alongside it.
func linkModule(ir, out string, library bool, forceImports []string) error {
	fi, err := ioutil.TempFile("", "*.ll")
	if err != nil {
		return err
	}
	defer os.Remove(fi.Name())
	defer fi.Close()

	if _, err := io.Copy(fi, strings.NewReader(ir)); err != nil {
		return err
	}

	runtimeObj, err := compileRuntimeShim()
	if err != nil {
		return err
	}
	defer os.Remove(runtimeObj)

	cmd := exec.Command("clang", "-lm", "-o", out, fi.Name(), runtimeObj)
	cmd.Args = append(cmd.Args, forceImports...)
	if library {
		cmd.Args = append(cmd.Args, "-shared", "-no-pie")
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// compileRuntimeShim compiles runtime/indc_runtime.c to a temporary
// object file; main links it into every program. The source path comes
// from runtimeShimPath: INDC_RUNTIME_SRC if set, otherwise the relative
// path runtime/indc_runtime.c, which resolves only when indc runs from
// the module's source checkout.
func compileRuntimeShim() (string, error) {
	obj, err := ioutil.TempFile("", "*.o")
	if err != nil {
		return "", err
	}
	obj.Close()

	cmd := exec.Command("clang", "-c", "-o", obj.Name(), runtimeShimPath())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		os.Remove(obj.Name())
		return "", err
	}
	return obj.Name(), nil
}

func runtimeShimPath() string {
	if p := os.Getenv("INDC_RUNTIME_SRC"); p != "" {
		return p
	}
	return "runtime/indc_runtime.c"
}

var initCommand = &cli.Command{
	Name:  "init",
	Usage: "initialize a project manifest in the current directory",
	Action: func(c *cli.Context) error {
		name := c.Args().First()
		if name == "" {
			return cli.Exit("no package name provided", 1)
		}
		out, err := yaml.Marshal(indcModule{Package: name})
		if err != nil {
			return err
		}
		return ioutil.WriteFile(manifestFile, out, 0o644)
	},
}

var buildCommand = &cli.Command{
	Name:  "build",
	Usage: "build a source file per the project manifest",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "output"},
		&cli.BoolFlag{Name: "dump"},
		&cli.BoolFlag{Name: "library"},
		&cli.StringSliceFlag{Name: "force-import", Value: cli.NewStringSlice()},
	},
	Action: func(c *cli.Context) error {
		path := c.Args().First()
		if path == "" {
			return cli.Exit("a source path is required", 1)
		}

		data, err := ioutil.ReadFile(manifestFile)
		if err != nil {
			return cli.Exit(fmt.Sprintf("error reading %s: %v", manifestFile, err), 1)
		}
		var doc indcModule
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return cli.Exit(fmt.Sprintf("error parsing %s: %v", manifestFile, err), 1)
		}

		out := c.String("output")
		if out == "" {
			out = doc.Package
		}
		if c.Bool("library") {
			out += ".so"
		}

		src, err := ioutil.ReadFile(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("cannot read %s: %v", path, err), 1)
		}

		toks := lexer.Tokenize(src, path)
		p := parser.New(toks, path)
		prog := p.Parse()
		if len(p.Errors()) != 0 {
			for _, e := range p.Errors() {
				fmt.Fprintln(os.Stderr, e)
			}
			return cli.Exit("parse failed", 1)
		}

		reporter := diag.NewReporter(string(src), path)
		if !sema.NewAnalyzer(reporter).Analyze(prog) {
			fmt.Fprint(os.Stderr, reporter.Render())
			return cli.Exit("semantic analysis failed", 1)
		}

		mod, err := lower.NewModule(prog)
		if err != nil {
			return cli.Exit(fmt.Sprintf("lowering failed: %v", err), 1)
		}

		if c.Bool("library") {
			embedTypeInfo(mod, prog, doc.Package)
		}

		irText := mod.String()
		if c.Bool("dump") {
			fmt.Println(irText)
			return nil
		}

		return linkModule(irText, out, c.Bool("library"), c.StringSlice("force-import"))
	},
}

var typeinfoCommand = &cli.Command{
	Name:  "typeinfo",
	Usage: "dump embedded typeinfo from a compiled shared object",
	Action: func(c *cli.Context) error {
		file := c.Args().Get(0)
		if file == "" {
			return cli.Exit("a shared object path is required", 1)
		}
		data, err := ReadTypeInfo(file)
		if err != nil {
			return err
		}
		repr.Println(data)
		return nil
	},
}

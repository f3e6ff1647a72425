package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

// CalculateTool evaluates arithmetic. The only names in scope are the
// members of the math namespace.
type CalculateTool struct {
	env calcEnv
}

// calcEnv is the whole expression environment.
type calcEnv struct {
	Math mathNamespace `expr:"math"`
}

type mathNamespace struct {
	Pi        float64                           `expr:"pi"`
	E         float64                           `expr:"e"`
	Tau       float64                           `expr:"tau"`
	Sqrt      func(float64) float64             `expr:"sqrt"`
	Pow       func(float64, float64) float64    `expr:"pow"`
	Exp       func(float64) float64             `expr:"exp"`
	Log       func(float64, ...float64) float64 `expr:"log"`
	Log10     func(float64) float64             `expr:"log10"`
	Log2      func(float64) float64             `expr:"log2"`
	Sin       func(float64) float64             `expr:"sin"`
	Cos       func(float64) float64             `expr:"cos"`
	Tan       func(float64) float64             `expr:"tan"`
	Asin      func(float64) float64             `expr:"asin"`
	Acos      func(float64) float64             `expr:"acos"`
	Atan      func(float64) float64             `expr:"atan"`
	Atan2     func(float64, float64) float64    `expr:"atan2"`
	Sinh      func(float64) float64             `expr:"sinh"`
	Cosh      func(float64) float64             `expr:"cosh"`
	Tanh      func(float64) float64             `expr:"tanh"`
	Floor     func(float64) float64             `expr:"floor"`
	Ceil      func(float64) float64             `expr:"ceil"`
	Trunc     func(float64) float64             `expr:"trunc"`
	Fabs      func(float64) float64             `expr:"fabs"`
	Hypot     func(float64, float64) float64    `expr:"hypot"`
	Fmod      func(float64, float64) float64    `expr:"fmod"`
	Degrees   func(float64) float64             `expr:"degrees"`
	Radians   func(float64) float64             `expr:"radians"`
	Factorial func(float64) float64             `expr:"factorial"`
}

func NewCalculateTool() *CalculateTool {
	return &CalculateTool{env: calcEnv{Math: newMathNamespace()}}
}

func (c *CalculateTool) Name() string { return "calculate" }

func (c *CalculateTool) Description() string {
	return "Evaluate an arithmetic expression such as '(3 + 4) * 2' or 'math.sqrt(2) ** 2'. " +
		"Use '**' for powers and math.floor(a / b) for floor division. " +
		"Only numbers, operators and members of the 'math' namespace are available."
}

func (c *CalculateTool) Parameters() []Parameter {
	return []Parameter{
		{Name: "tool_input", Type: "string", Description: "Expression to evaluate", Required: true},
	}
}

// unsupportedOperators are tokens the expression engine reads differently
// from conventional arithmetic: "//" and "/*" open comments and "^" is
// exponentiation rather than xor.
var unsupportedOperators = []struct {
	token string
	hint  string
}{
	{"//", "floor division '//' is not supported, use math.floor(a / b)"},
	{"/*", "comments are not supported"},
	{"^", "operator '^' is not supported, use '**' for powers"},
}

var (
	errNotFinite  = errors.New("result is infinite (division by zero or overflow)")
	errMathDomain = errors.New("math domain error")
)

func (c *CalculateTool) Execute(_ context.Context, call Call) (string, error) {
	expression := strings.TrimSpace(call.Input.String())
	for _, op := range unsupportedOperators {
		if strings.Contains(expression, op.token) {
			return "", errors.New(op.hint)
		}
	}

	program, err := expr.Compile(expression, expr.Env(c.env), expr.DisableAllBuiltins())
	if err != nil {
		return "", err
	}

	out, err := expr.Run(program, c.env)
	if err != nil {
		return "", err
	}
	if err := checkFinite(out); err != nil {
		return "", err
	}
	return formatNumber(out), nil
}

// checkFinite rejects infinities and NaN, which only arise from division by
// zero, overflow or arguments outside a function's domain.
func checkFinite(v any) error {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	default:
		return nil
	}
	switch {
	case math.IsNaN(f):
		return errMathDomain
	case math.IsInf(f, 0):
		return errNotFinite
	}
	return nil
}

func formatNumber(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'g', -1, 32)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	default:
		return fmt.Sprint(v)
	}
}

func newMathNamespace() mathNamespace {
	return mathNamespace{
		Pi:    math.Pi,
		E:     math.E,
		Tau:   2 * math.Pi,
		Sqrt:  math.Sqrt,
		Pow:   math.Pow,
		Exp:   math.Exp,
		Log:   mathLog,
		Log10: math.Log10,
		Log2:  math.Log2,
		Sin:   math.Sin,
		Cos:   math.Cos,
		Tan:   math.Tan,
		Asin:  math.Asin,
		Acos:  math.Acos,
		Atan:  math.Atan,
		Atan2: math.Atan2,
		Sinh:  math.Sinh,
		Cosh:  math.Cosh,
		Tanh:  math.Tanh,
		Floor: math.Floor,
		Ceil:  math.Ceil,
		Trunc: math.Trunc,
		Fabs:  math.Abs,
		Hypot: math.Hypot,
		Fmod:  math.Mod,
		Degrees: func(x float64) float64 {
			return x * 180 / math.Pi
		},
		Radians: func(x float64) float64 {
			return x * math.Pi / 180
		},
		Factorial: factorial,
	}
}

// mathLog is the natural log, or log in the given base.
func mathLog(x float64, base ...float64) float64 {
	if len(base) > 0 {
		return math.Log(x) / math.Log(base[0])
	}
	return math.Log(x)
}

// factorial is defined for non-negative integers only and is NaN otherwise.
func factorial(n float64) float64 {
	if n < 0 || n != math.Trunc(n) {
		return math.NaN()
	}
	return math.Round(math.Gamma(n + 1))
}

package stats

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/sprstat/internal/model"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrNotConverged is returned when the likelihood optimisation fails
	ErrNotConverged = errors.New("mixed model did not converge")
	// ErrSingularDesign is returned when the fixed-effect design is rank deficient
	ErrSingularDesign = errors.New("singular design matrix")
)

// Factor is a two-level predictor coded as a treatment contrast:
// 0 for Reference, 1 for Level.
type Factor struct {
	Name      string
	Reference string
	Level     string
	Values    []string
}

// MixedDesign describes a random-intercept model
//
//	y = X*beta + u[group] + e,  u ~ N(0, tau^2),  e ~ N(0, sigma^2)
type MixedDesign struct {
	Name        string
	Response    string
	Y           []float64
	Groups      []string
	Factors     []Factor
	Interaction bool // Adds the product of the first two factors
}

// Formula renders the model in Wilkinson notation
func (d MixedDesign) Formula() string {
	names := make([]string, len(d.Factors))
	for i, f := range d.Factors {
		names[i] = f.Name
	}
	sep := " + "
	if d.Interaction {
		sep = " * "
	}
	rhs := "1"
	if len(names) > 0 {
		rhs = strings.Join(names, sep)
	}
	return fmt.Sprintf("%s ~ %s + (1|participant)", d.Response, rhs)
}

func (d MixedDesign) terms() []string {
	terms := []string{"Intercept"}
	for _, f := range d.Factors {
		terms = append(terms, fmt.Sprintf("%s[T.%s]", f.Name, f.Level))
	}
	if d.Interaction && len(d.Factors) >= 2 {
		terms = append(terms, terms[1]+":"+terms[2])
	}
	return terms
}

// mixedFitter caches the sufficient statistics of a design
type mixedFitter struct {
	x     *mat.Dense
	y     []float64
	group []int
	sizes []float64
	xsums []*mat.VecDense
	ysums []float64
	xtx   *mat.SymDense
	xty   *mat.VecDense
	n, p  int
}

type mixedFit struct {
	theta  float64 // tau^2 / sigma^2
	sigma2 float64
	ll     float64
	beta   *mat.VecDense
	chol   *mat.Cholesky
}

// FitMixedModel fits the design by maximum likelihood, profiling out beta
// and sigma^2 and optimising the variance ratio numerically.
func FitMixedModel(d MixedDesign) (*model.ModelResult, error) {
	f, err := newMixedFitter(d)
	if err != nil {
		return nil, err
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			phi := math.Max(-20, math.Min(10, x[0]))
			fit, err := f.profile(math.Exp(phi))
			if err != nil {
				return math.Inf(1)
			}
			return -fit.ll
		},
	}
	settings := &optimize.Settings{FuncEvaluations: 2000}

	res, err := optimize.Minimize(problem, []float64{0}, settings, &optimize.NelderMead{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConverged, err)
	}
	if math.IsNaN(res.F) || math.IsInf(res.F, 0) {
		return nil, ErrNotConverged
	}

	best, err := f.profile(math.Exp(math.Max(-20, math.Min(10, res.X[0]))))
	if err != nil {
		return nil, err
	}
	// The optimum may sit on the boundary tau^2 = 0
	if boundary, err := f.profile(0); err == nil && boundary.ll >= best.ll {
		best = boundary
	}

	var inv mat.SymDense
	if err := best.chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularDesign, err)
	}

	terms := d.terms()
	coefs := make([]model.Coefficient, len(terms))
	for j, term := range terms {
		est := best.beta.AtVec(j)
		se := math.Sqrt(best.sigma2 * inv.At(j, j))
		z := est / se
		coefs[j] = model.Coefficient{
			Term:     term,
			Estimate: est,
			SE:       se,
			Z:        z,
			PValue:   2 * distuv.UnitNormal.Survival(math.Abs(z)),
		}
	}

	return &model.ModelResult{
		Name:             d.Name,
		Formula:          d.Formula(),
		Converged:        true,
		Coefficients:     coefs,
		GroupVariance:    best.theta * best.sigma2,
		ResidualVariance: best.sigma2,
		LogLikelihood:    best.ll,
		NObs:             f.n,
		NGroups:          len(f.sizes),
	}, nil
}

func newMixedFitter(d MixedDesign) (*mixedFitter, error) {
	n := len(d.Y)
	if len(d.Groups) != n {
		return nil, fmt.Errorf("design has %d responses but %d group labels", n, len(d.Groups))
	}
	if d.Interaction && len(d.Factors) < 2 {
		return nil, fmt.Errorf("interaction needs two factors (got %d)", len(d.Factors))
	}

	p := len(d.terms())
	if n <= p+1 {
		return nil, fmt.Errorf("%w: %d observations for %d fixed effects", ErrInsufficientData, n, p)
	}

	x := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
	}
	for j, fac := range d.Factors {
		if len(fac.Values) != n {
			return nil, fmt.Errorf("factor %s has %d values for %d responses", fac.Name, len(fac.Values), n)
		}
		for i, v := range fac.Values {
			switch v {
			case fac.Level:
				x.Set(i, j+1, 1)
			case fac.Reference:
			default:
				return nil, fmt.Errorf("factor %s: unexpected level %q at row %d", fac.Name, v, i)
			}
		}
	}
	if d.Interaction {
		col := len(d.Factors) + 1
		for i := 0; i < n; i++ {
			x.Set(i, col, x.At(i, 1)*x.At(i, 2))
		}
	}

	f := &mixedFitter{x: x, y: d.Y, group: make([]int, n), n: n, p: p}

	index := make(map[string]int)
	for i, g := range d.Groups {
		k, ok := index[g]
		if !ok {
			k = len(f.sizes)
			index[g] = k
			f.sizes = append(f.sizes, 0)
			f.xsums = append(f.xsums, mat.NewVecDense(p, nil))
			f.ysums = append(f.ysums, 0)
		}
		f.group[i] = k
		f.sizes[k]++
		f.xsums[k].AddVec(f.xsums[k], x.RowView(i))
		f.ysums[k] += d.Y[i]
	}
	if len(f.sizes) < 2 {
		return nil, fmt.Errorf("%w: need at least two participants (got %d)", ErrInsufficientData, len(f.sizes))
	}

	f.xtx = mat.NewSymDense(p, nil)
	f.xtx.SymOuterK(1, x.T())
	f.xty = mat.NewVecDense(p, nil)
	f.xty.MulVec(x.T(), mat.NewVecDense(n, d.Y))

	var chol mat.Cholesky
	if ok := chol.Factorize(f.xtx); !ok {
		return nil, fmt.Errorf("%w: %s has a constant or collinear predictor", ErrSingularDesign, d.Formula())
	}

	return f, nil
}

// profile evaluates the log-likelihood at variance ratio theta with beta
// and sigma^2 at their conditional maxima. Each participant block has
// V = I + theta*11', so V^-1 = I - w*11' with w = theta/(1+theta*n_g)
// and |V| = 1 + theta*n_g.
func (f *mixedFitter) profile(theta float64) (mixedFit, error) {
	a := mat.NewSymDense(f.p, nil)
	a.CopySym(f.xtx)
	b := mat.VecDenseCopyOf(f.xty)

	weights := make([]float64, len(f.sizes))
	logdet := 0.0
	for g, ng := range f.sizes {
		w := theta / (1 + theta*ng)
		weights[g] = w
		a.SymRankOne(a, -w, f.xsums[g])
		b.AddScaledVec(b, -w*f.ysums[g], f.xsums[g])
		logdet += math.Log1p(theta * ng)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return mixedFit{}, ErrSingularDesign
	}
	beta := mat.NewVecDense(f.p, nil)
	if err := chol.SolveVecTo(beta, b); err != nil {
		return mixedFit{}, fmt.Errorf("%w: %v", ErrSingularDesign, err)
	}

	fitted := mat.NewVecDense(f.n, nil)
	fitted.MulVec(f.x, beta)

	rsums := make([]float64, len(f.sizes))
	q := 0.0
	for i, y := range f.y {
		r := y - fitted.AtVec(i)
		q += r * r
		rsums[f.group[i]] += r
	}
	for g, rs := range rsums {
		q -= weights[g] * rs * rs
	}

	n := float64(f.n)
	sigma2 := q / n
	if !(sigma2 > 0) {
		return mixedFit{}, ErrNotConverged
	}

	ll := -0.5 * (n*math.Log(2*math.Pi*sigma2) + logdet + n)
	return mixedFit{theta: theta, sigma2: sigma2, ll: ll, beta: beta, chol: &chol}, nil
}

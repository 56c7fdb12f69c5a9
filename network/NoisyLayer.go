package network

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// noiseLayer is a Layer whose injected noise can be resampled
type noiseLayer interface {
	Layer
	resetNoise() error
}

// noisyLayer implements a fully connected layer with factorized
// Gaussian stochastic weights: each effective weight is
// mu + sigma * eps, where mu and sigma are learned and eps is
// resampled noise. Noise injected this way is a structural
// alternative to epsilon-greedy exploration.
type noisyLayer struct {
	wMu     *G.Node
	wSigma  *G.Node
	bMu     *G.Node
	bSigma  *G.Node
	wEps    *G.Node
	bEps    *G.Node
	in, out int
	act     Activation
	norm    distuv.Normal
}

// NewNoisyFactory returns a LayerFactory that builds noisy fully
// connected layers. The sigma weights are initialized to
// stdInit/sqrt(in) following the factorized noisy networks scheme; the
// init argument of the factory is ignored since noisy layers fix
// their own initialization.
func NewNoisyFactory(stdInit float64, seed uint64) LayerFactory {
	src := rand.NewSource(seed)

	return func(g *G.ExprGraph, in, out int, _ G.InitWFn,
		name string) (Layer, error) {
		bound := 1.0 / math.Sqrt(float64(in))
		sigmaInit := stdInit / math.Sqrt(float64(in))

		l := &noisyLayer{
			wMu: G.NewMatrix(g, tensor.Float64, G.WithShape(in, out),
				G.WithName(name+"_Wmu"), G.WithInit(G.Uniform(-bound, bound))),
			wSigma: G.NewMatrix(g, tensor.Float64, G.WithShape(in, out),
				G.WithName(name+"_Wsigma"), G.WithInit(G.ValuesOf(sigmaInit))),
			bMu: G.NewVector(g, tensor.Float64, G.WithShape(out),
				G.WithName(name+"_Bmu"), G.WithInit(G.Uniform(-bound, bound))),
			bSigma: G.NewVector(g, tensor.Float64, G.WithShape(out),
				G.WithName(name+"_Bsigma"), G.WithInit(G.ValuesOf(sigmaInit))),
			in:   in,
			out:  out,
			norm: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		}

		wEps, bEps := l.sampleNoise()
		l.wEps = G.NewMatrix(g, tensor.Float64, G.WithShape(in, out),
			G.WithName(name+"_Weps"), G.WithValue(wEps))
		l.bEps = G.NewVector(g, tensor.Float64, G.WithShape(out),
			G.WithName(name+"_Beps"), G.WithValue(bEps))

		return l, nil
	}
}

// sampleNoise draws factorized Gaussian noise for the weights and
// bias: eps_w[i][j] = f(in_i) * f(out_j) and eps_b[j] = f(out_j),
// with f(x) = sign(x) * sqrt(|x|)
func (l *noisyLayer) sampleNoise() (*tensor.Dense, *tensor.Dense) {
	epsIn := make([]float64, l.in)
	for i := range epsIn {
		epsIn[i] = factorize(l.norm.Rand())
	}
	epsOut := make([]float64, l.out)
	for j := range epsOut {
		epsOut[j] = factorize(l.norm.Rand())
	}

	wBacking := make([]float64, l.in*l.out)
	for i := 0; i < l.in; i++ {
		for j := 0; j < l.out; j++ {
			wBacking[i*l.out+j] = epsIn[i] * epsOut[j]
		}
	}

	wEps := tensor.New(tensor.WithShape(l.in, l.out),
		tensor.WithBacking(wBacking))
	bEps := tensor.New(tensor.WithShape(l.out), tensor.WithBacking(epsOut))
	return wEps, bEps
}

func factorize(x float64) float64 {
	return math.Copysign(math.Sqrt(math.Abs(x)), x)
}

// resetNoise resamples the injected noise in place
func (l *noisyLayer) resetNoise() error {
	wEps, bEps := l.sampleNoise()
	if err := G.Let(l.wEps, wEps); err != nil {
		return err
	}
	return G.Let(l.bEps, bEps)
}

// Fwd adds the forward pass of the noisyLayer to the computational
// graph
func (l *noisyLayer) Fwd(x *G.Node) (*G.Node, error) {
	noise, err := G.HadamardProd(l.wSigma, l.wEps)
	if err != nil {
		return nil, err
	}
	weights, err := G.Add(l.wMu, noise)
	if err != nil {
		return nil, err
	}

	x, err = G.Mul(x, weights)
	if err != nil {
		return nil, err
	}

	biasNoise, err := G.HadamardProd(l.bSigma, l.bEps)
	if err != nil {
		return nil, err
	}
	bias, err := G.Add(l.bMu, biasNoise)
	if err != nil {
		return nil, err
	}

	// Broadcast the bias weights to all samples along the batch
	// dimension
	x, err = G.BroadcastAdd(x, bias, nil, []byte{0})
	if err != nil {
		return nil, err
	}

	if l.act == nil {
		return x, nil
	}
	return l.act(x)
}

// CloneTo clones a noisyLayer to a new computational graph. The clone
// carries the current noise values until its noise is next reset.
func (l *noisyLayer) CloneTo(g *G.ExprGraph) Layer {
	return &noisyLayer{
		wMu:    l.wMu.CloneTo(g),
		wSigma: l.wSigma.CloneTo(g),
		bMu:    l.bMu.CloneTo(g),
		bSigma: l.bSigma.CloneTo(g),
		wEps:   l.wEps.CloneTo(g),
		bEps:   l.bEps.CloneTo(g),
		in:     l.in,
		out:    l.out,
		act:    l.act,
		norm:   l.norm,
	}
}

// Learnables returns the learned mean and deviation nodes. The noise
// nodes are not learnable.
func (l *noisyLayer) Learnables() G.Nodes {
	return G.Nodes{l.wMu, l.wSigma, l.bMu, l.bSigma}
}

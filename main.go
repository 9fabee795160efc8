package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"math"
	"os"

	"github.com/pkg/errors"
	gorgonia "gorgonia.org/tensor"

	"neuranet/cnn"
	"neuranet/neuralnet"
	"neuranet/tensor"
)

type options struct {
	epochs  int
	batch   int
	lr      float64
	decay   float64
	hidden  int
	seed    int64
	workers int
	edges   string
	verbose bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("neuranet", flag.ContinueOnError)
	fs.IntVar(&o.epochs, "epochs", 5000, "training epochs")
	fs.IntVar(&o.batch, "batch", 1, "datasets per batch")
	fs.Float64Var(&o.lr, "lr", 1, "learning rate")
	fs.Float64Var(&o.decay, "decay", 0, "learning rate multiplier applied after every epoch, 0 disables it")
	fs.IntVar(&o.hidden, "hidden", 4, "hidden layer size")
	fs.Int64Var(&o.seed, "seed", 0, "weight seed, 0 derives it from the layer sizes")
	fs.IntVar(&o.workers, "workers", 1, "goroutines per batch and per convolution")
	fs.StringVar(&o.edges, "edges", "", "write the edge map as a PNG to this path")
	fs.BoolVar(&o.verbose, "v", false, "log the loss after every epoch")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	return o, nil
}

// oneHotEncode returns one expected-output column vector per label.
func oneHotEncode(labels []int, numClasses int) ([]*tensor.Tensor2D, error) {
	numLabels := len(labels)
	if numLabels == 0 {
		return nil, nil
	}
	norm := make([]float64, numLabels*numClasses)

	for i, label := range labels {
		if label < 0 || label >= numClasses {
			return nil, errors.Wrapf(tensor.ErrMalformedInput, "label %d of %d classes", label, numClasses)
		}
		norm[i*numClasses+label] = 1.0
	}

	dense := gorgonia.New(gorgonia.Of(gorgonia.Float64), gorgonia.WithShape(numLabels, numClasses), gorgonia.WithBacking(norm))
	t, err := tensor.FromGorgonia(dense)
	if err != nil {
		return nil, err
	}
	table, err := t.To2D()
	if err != nil {
		return nil, err
	}
	out := make([]*tensor.Tensor2D, 0, numLabels)
	for _, row := range table.Rows() {
		out = append(out, row.T())
	}
	return out, nil
}

func xorDatasets() ([]*neuralnet.Dataset, error) {
	inputs := [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	expected, err := oneHotEncode([]int{0, 1, 1, 0}, 2)
	if err != nil {
		return nil, err
	}
	datasets := make([]*neuralnet.Dataset, len(inputs))
	for i, in := range inputs {
		datasets[i] = neuralnet.NewDataset(tensor.NewVector(in...), expected[i])
	}
	return datasets, nil
}

func trainXOR(o options, logger *log.Logger) (float64, error) {
	datasets, err := xorDatasets()
	if err != nil {
		return 0, err
	}

	var opts []neuralnet.Option
	if o.seed != 0 {
		opts = append(opts, neuralnet.WithSeed(o.seed))
	}
	nn, err := neuralnet.NewNeuralNetwork([]int{2, o.hidden, 2}, neuralnet.ActivationSigmoid, opts...)
	if err != nil {
		return 0, err
	}

	p := neuralnet.DefaultParams()
	p.Epochs, p.BatchSize, p.LearningRate, p.Decay = o.epochs, o.batch, o.lr, o.decay
	p.Workers = o.workers
	if o.verbose {
		p.Logger = logger
	}
	if err := nn.Train(datasets, p); err != nil {
		return 0, errors.Wrap(err, "training")
	}

	loss, err := nn.AverageLoss(datasets)
	if err != nil {
		return 0, err
	}
	acc, err := nn.Accuracy(datasets)
	if err != nil {
		return 0, err
	}
	logger.Printf("xor: loss %.6f accuracy %.2f", loss, acc)
	return acc, nil
}

// squareImage is a rows x cols single-layer image holding a bright square on
// a dark background.
func squareImage(rows, cols int) *tensor.Tensor3D {
	img := tensor.Zeros3D(rows, cols, 1)
	for r := rows / 4; r < rows-rows/4; r++ {
		for c := cols / 4; c < cols-cols/4; c++ {
			_ = img.Set(r, c, 0, 1)
		}
	}
	return img
}

// sobelStage detects vertical edges in layer 0 and horizontal edges in layer 1.
func sobelStage(workers int) (*cnn.Convolution, error) {
	cfg := cnn.DefaultConfig()
	cfg.Filters, cfg.Padding, cfg.Workers = 2, 1, workers
	cfg.Activation = neuralnet.ActivationReLUNormalized
	stage, err := cnn.NewConvolution(cfg, nil)
	if err != nil {
		return nil, err
	}
	kernels := [][][]float64{
		{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}},
		{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}},
	}
	for i, k := range kernels {
		m, err := tensor.New2D(k)
		if err != nil {
			return nil, err
		}
		if err := stage.SetFilter(i, m.To3D()); err != nil {
			return nil, err
		}
	}
	return stage, nil
}

func detectEdges(o options, logger *log.Logger) (*tensor.Tensor3D, error) {
	stage, err := sobelStage(o.workers)
	if err != nil {
		return nil, err
	}
	n := cnn.NewNetwork([]*cnn.Convolution{stage}, cnn.WithLogger(logger))
	edges, err := n.Compute(squareImage(16, 16))
	if err != nil {
		return nil, errors.Wrap(err, "edge detection")
	}
	if o.edges != "" {
		if err := saveImg(edges, o.edges); err != nil {
			return nil, err
		}
		logger.Printf("edge map saved as %s", o.edges)
	}
	return edges, nil
}

// saveImg writes the strongest response over all layers of t as a grayscale PNG.
func saveImg(t *tensor.Tensor3D, path string) error {
	peak := 0.0
	for _, v := range t.Abs().Data() {
		peak = math.Max(peak, v)
	}
	img := image.NewGray(image.Rect(0, 0, t.ColCount(), t.RowCount()))
	for y := 0; y < t.RowCount(); y++ {
		for x := 0; x < t.ColCount(); x++ {
			var v float64
			for l := 0; l < t.LayerCount(); l++ {
				e, _ := t.At(y, x, l)
				v = math.Max(v, math.Abs(e))
			}
			if peak > 0 {
				v /= peak
			}
			img.SetGray(x, y, color.Gray{Y: uint8(v * 255)})
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "saving edge map")
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return errors.Wrap(err, "encoding edge map")
	}
	return nil
}

func run(args []string, stderr io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}
	logger := log.New(stderr, "", 0)

	if _, err := trainXOR(o, logger); err != nil {
		return err
	}
	if _, err := detectEdges(o, logger); err != nil {
		return err
	}
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

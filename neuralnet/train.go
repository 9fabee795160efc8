package neuralnet

import (
	"log"
	"sync"

	"github.com/pkg/errors"

	"neuranet/tensor"
)

// Params configures a training run.
type Params struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	// Decay multiplies the learning rate after every epoch. 0 disables it.
	Decay float64
	// Workers is the number of goroutines computing per-example gradients
	// within a batch. Values below 2 compute them on the calling goroutine.
	Workers int
	// Optimizer defaults to SGD.
	Optimizer Optimizer
	// Logger, when set, receives the average loss after every epoch.
	Logger *log.Logger
}

// DefaultParams trains for one epoch, one dataset per batch, at learning rate 1.
func DefaultParams() Params {
	return Params{Epochs: 1, BatchSize: 1, LearningRate: 1}
}

// Learn runs mini-batch gradient descent over datasets.
func (nn *NeuralNetwork) Learn(datasets []*Dataset, epochs, batchSize int, learningRate float64) error {
	p := DefaultParams()
	p.Epochs, p.BatchSize, p.LearningRate = epochs, batchSize, learningRate
	return nn.Train(datasets, p)
}

// Train splits datasets into consecutive batches of p.BatchSize (the last one
// may be shorter) and updates the network once per batch with the batch-average
// gradient, for p.Epochs passes. A dataset that does not fit the network aborts
// training before its batch touches any parameter.
func (nn *NeuralNetwork) Train(datasets []*Dataset, p Params) error {
	if p.Epochs < 0 {
		return errors.Wrapf(tensor.ErrMalformedInput, "%d epochs", p.Epochs)
	}
	if p.BatchSize <= 0 {
		return errors.Wrapf(tensor.ErrMalformedInput, "batch size %d", p.BatchSize)
	}
	opt := p.Optimizer
	if opt == nil {
		opt = &SGD{}
	}

	lr := p.LearningRate
	for epoch := 0; epoch < p.Epochs; epoch++ {
		for start := 0; start < len(datasets); start += p.BatchSize {
			end := start + p.BatchSize
			if end > len(datasets) {
				end = len(datasets)
			}
			batch := datasets[start:end]

			grads, err := nn.batchGradients(batch, p.Workers)
			if err != nil {
				return errors.Wrapf(err, "epoch %d, batch at dataset %d", epoch, start)
			}
			if err := opt.Apply(nn, grads, len(batch), lr); err != nil {
				return errors.Wrapf(err, "epoch %d, batch at dataset %d", epoch, start)
			}
		}

		if p.Logger != nil {
			loss, err := nn.AverageLoss(datasets)
			if err != nil {
				return errors.Wrapf(err, "epoch %d", epoch)
			}
			p.Logger.Printf("epoch %d loss %.6f", epoch, loss)
		}
		if p.Decay > 0 {
			lr *= p.Decay
		}
	}
	return nil
}

// batchGradients sums the gradients of every dataset in batch. The sum runs in
// batch order whatever the number of workers, so results do not depend on
// scheduling.
func (nn *NeuralNetwork) batchGradients(batch []*Dataset, workers int) (*Gradients, error) {
	perExample := make([]*Gradients, len(batch))
	errs := make([]error, len(batch))

	if workers < 2 {
		for i, d := range batch {
			if perExample[i], errs[i] = nn.DatasetGradients(d); errs[i] != nil {
				return nil, errors.Wrapf(errs[i], "dataset %d of batch", i)
			}
		}
	} else {
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					perExample[i], errs[i] = nn.DatasetGradients(batch[i])
				}
			}()
		}
		for i := range batch {
			jobs <- i
		}
		close(jobs)
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				return nil, errors.Wrapf(err, "dataset %d of batch", i)
			}
		}
	}

	total := perExample[0].Clone()
	for i := 1; i < len(perExample); i++ {
		if err := total.Add(perExample[i]); err != nil {
			return nil, errors.Wrapf(err, "dataset %d of batch", i)
		}
	}
	return total, nil
}

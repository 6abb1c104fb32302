package histo

import (
	"fmt"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/hbook/rootcnv"

	zerrors "zastat/internal/errors"
)

// OpenROOT reads every 1-D histogram stored at the top level of a ROOT file.
// Other objects are ignored.
func OpenROOT(path string) (*MemStore, error) {
	f, err := groot.Open(path)
	if err != nil {
		return nil, zerrors.New(zerrors.HistogramNotFound, fmt.Sprintf("open %s", path), err)
	}
	defer f.Close()

	store := NewMemStore()
	for _, key := range f.Keys() {
		obj, err := key.Object()
		if err != nil {
			return nil, zerrors.New(zerrors.InvalidHistogram,
				fmt.Sprintf("read %s:%s", path, key.Name()), err)
		}
		h1, ok := obj.(rhist.H1)
		if !ok {
			continue
		}
		h, err := FromROOT(key.Name(), h1)
		if err != nil {
			return nil, err
		}
		store.Put(h)
	}
	return store, nil
}

// FromROOT converts a ROOT TH1 into a Histogram, flow bins included.
func FromROOT(name string, r rhist.H1) (*Histogram, error) {
	return FromH1D(name, rootcnv.H1D(r))
}

// WriteROOT writes hists as TH1D objects into a new ROOT file at path.
func WriteROOT(path string, hists ...*Histogram) error {
	f, err := groot.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	for _, h := range hists {
		if err := f.Put(h.Name, rhist.NewH1DFrom(ToH1D(h))); err != nil {
			_ = f.Close()
			return fmt.Errorf("write %s:%s: %w", path, h.Name, err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

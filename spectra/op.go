// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package spectra

import (
	"context"
	"fmt"
	"strconv"
)

type Op interface {
	GetDescription() string
	Run(ctx context.Context, p *Product) error
}

type OpArray []Op

// Run applies each op in order and stops at the first error.
func (ops OpArray) Run(ctx context.Context, p *Product) error {
	for _, o := range ops {
		if err := o.Run(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (ops OpArray) Describe() string {
	var desc string
	for i, o := range ops {
		desc += strconv.Itoa(i) + ") "
		desc += o.GetDescription()
		if i < len(ops)-1 {
			desc += "\n"
		}
	}
	return desc
}

type ProductProcessor func(context.Context, *Product) error

type ProductOp struct {
	Description      string
	ProductProcessor ProductProcessor
}

func (o ProductOp) GetDescription() string {
	return o.Description
}

func (o ProductOp) Run(ctx context.Context, p *Product) error {
	if err := o.ProductProcessor(ctx, p); err != nil {
		return fmt.Errorf("%v: %w", o.Description, err)
	}
	return nil
}

//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Command fabricdemo runs the six concrete scenarios of spec.md §8
// between two in-process parties connected by a p2p.Pipe, mirroring
// cmd/tss/main.go's two-goroutine shape.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"sync"

	"github.com/markkurossi/mpc/p2p"

	"github.com/markkurossi/starkspdz/curve"
	"github.com/markkurossi/starkspdz/fabric"
	"github.com/markkurossi/starkspdz/field"
)

func main() {
	flag.Parse()

	pA, pB := p2p.Pipe()

	dealerA, dealerB := fabric.NewDealerPair(rand.Reader)

	var wg sync.WaitGroup
	wg.Add(2)

	var errA, errB error

	go func() {
		defer wg.Done()
		errA = runParty(fabric.Party0, pA, dealerA)
	}()
	go func() {
		defer wg.Done()
		errB = runParty(fabric.Party1, pB, dealerB)
	}()

	wg.Wait()

	if errA != nil {
		log.Fatalf("party 0: %v", errA)
	}
	if errB != nil {
		log.Fatalf("party 1: %v", errB)
	}
}

func runParty(party int, conn *p2p.Conn, preproc fabric.Preprocessing) error {
	transport := fabric.NewPipeTransport(conn)
	f, err := fabric.New(party, transport, preproc, 1024)
	if err != nil {
		return err
	}
	defer f.Shutdown()

	ctx := context.Background()

	if err := scenarioAddPublicConstant(ctx, f, party); err != nil {
		return fmt.Errorf("scenario 1: %w", err)
	}
	if err := scenarioMultiplyPublicScalar(ctx, f, party); err != nil {
		return fmt.Errorf("scenario 2: %w", err)
	}
	if err := scenarioSecretMultiplication(ctx, f, party); err != nil {
		return fmt.Errorf("scenario 3: %w", err)
	}
	if err := scenarioTamperedMAC(ctx, f, party); err != nil {
		return fmt.Errorf("scenario 4: %w", err)
	}
	if err := scenarioPointAddition(ctx, f, party); err != nil {
		return fmt.Errorf("scenario 5: %w", err)
	}
	if err := scenarioMSM(ctx, f, party); err != nil {
		return fmt.Errorf("scenario 6: %w", err)
	}

	return nil
}

// scenarioAddPublicConstant: party 0 shares v=7, both compute w=v+5,
// authenticated open yields 12.
func scenarioAddPublicConstant(ctx context.Context, f *fabric.Fabric, party int) error {
	v := field.FromInt64(7)
	x, err := f.ShareAuthenticatedScalar(v, fabric.Party0)
	if err != nil {
		return err
	}
	w := x.AddPublicScalar(f, field.FromInt64(5))
	got, err := w.OpenAuthenticated(f).Await(ctx)
	if err != nil {
		return err
	}
	if !field.Equal(got, field.FromInt64(12)) {
		return fmt.Errorf("party %d: add public constant: got %v, want 12", party, got)
	}
	return nil
}

// scenarioMultiplyPublicScalar: share v=3, compute w=4*v, authenticated
// open yields 12.
func scenarioMultiplyPublicScalar(ctx context.Context, f *fabric.Fabric, party int) error {
	v := field.FromInt64(3)
	x, err := f.ShareAuthenticatedScalar(v, fabric.Party0)
	if err != nil {
		return err
	}
	w := x.MulPublicScalar(f, field.FromInt64(4))
	got, err := w.OpenAuthenticated(f).Await(ctx)
	if err != nil {
		return err
	}
	if !field.Equal(got, field.FromInt64(12)) {
		return fmt.Errorf("party %d: multiply public scalar: got %v, want 12", party, got)
	}
	return nil
}

// scenarioSecretMultiplication: party 0 shares x=6, party 1 shares
// y=7, z=x*y via one Beaver triple, authenticated open yields 42.
func scenarioSecretMultiplication(ctx context.Context, f *fabric.Fabric, party int) error {
	x, err := f.ShareAuthenticatedScalar(field.FromInt64(6), fabric.Party0)
	if err != nil {
		return err
	}
	y, err := f.ShareAuthenticatedScalar(field.FromInt64(7), fabric.Party1)
	if err != nil {
		return err
	}
	z, err := x.Mul(f, y)
	if err != nil {
		return err
	}
	got, err := z.OpenAuthenticated(f).Await(ctx)
	if err != nil {
		return err
	}
	if !field.Equal(got, field.FromInt64(42)) {
		return fmt.Errorf("party %d: secret multiplication: got %v, want 42", party, got)
	}
	return nil
}

// scenarioTamperedMAC: after sharing v=9, party 0 overwrites its own
// MAC share with a random field element; authenticated open must
// return an AuthenticationError on both parties.
func scenarioTamperedMAC(ctx context.Context, f *fabric.Fabric, party int) error {
	x, err := f.ShareAuthenticatedScalar(field.FromInt64(9), fabric.Party0)
	if err != nil {
		return err
	}

	// Both parties must allocate exactly one gate here, even though
	// only party 0's output differs from the honest MAC share: the
	// id streams have to stay aligned (spec.md §9's symmetric-graph-
	// shape discipline), or every network op from here on desyncs.
	var bogus field.Element
	if party == fabric.Party0 {
		bogus, err = field.Random(rand.Reader)
		if err != nil {
			return err
		}
	}
	x.Mac = f.NewGateOp([]fabric.ResultId{x.Mac.ID()}, func(args []fabric.Value) (fabric.Value, error) {
		if party == fabric.Party0 {
			return fabric.ScalarValue(bogus), nil
		}
		return args[0], nil
	})

	_, err = x.OpenAuthenticated(f).Await(ctx)
	if err == nil {
		return fmt.Errorf("party %d: tampered MAC: expected AuthenticationError, got nil", party)
	}
	if _, ok := err.(*fabric.AuthenticationError); !ok {
		return fmt.Errorf("party %d: tampered MAC: expected AuthenticationError, got %T: %v", party, err, err)
	}
	return nil
}

// scenarioPointAddition: party 0 shares P=2G, party 1 shares Q=3G,
// open(P+Q) yields 5G.
func scenarioPointAddition(ctx context.Context, f *fabric.Fabric, party int) error {
	g := curve.Generator()
	p := curve.ScalarMul(field.FromInt64(2), g)
	q := curve.ScalarMul(field.FromInt64(3), g)

	xP, err := f.ShareAuthenticatedPoint(p, fabric.Party0)
	if err != nil {
		return err
	}
	xQ, err := f.ShareAuthenticatedPoint(q, fabric.Party1)
	if err != nil {
		return err
	}

	sum := xP.Add(f, xQ)
	got, err := sum.OpenAuthenticated(f).Await(ctx)
	if err != nil {
		return err
	}
	want := curve.ScalarMul(field.FromInt64(5), g)
	if !curve.Equal(got, want) {
		return fmt.Errorf("party %d: point addition: got %v, want 5G", party, got)
	}
	return nil
}

// scenarioMSM: scalars [2,3] and authenticated points [G, 2G], msm
// opens to 8G.
func scenarioMSM(ctx context.Context, f *fabric.Fabric, party int) error {
	g := curve.Generator()
	twoG := curve.ScalarMul(field.FromInt64(2), g)

	xG, err := f.ShareAuthenticatedPoint(g, fabric.Party0)
	if err != nil {
		return err
	}
	x2G, err := f.ShareAuthenticatedPoint(twoG, fabric.Party1)
	if err != nil {
		return err
	}

	scalars := []field.Element{field.FromInt64(2), field.FromInt64(3)}
	points := []fabric.AuthenticatedPoint{xG, x2G}

	result, err := fabric.MSM(f, scalars, points)
	if err != nil {
		return err
	}
	got, err := result.OpenAuthenticated(f).Await(ctx)
	if err != nil {
		return err
	}
	want := curve.ScalarMul(field.FromInt64(8), g)
	if !curve.Equal(got, want) {
		return fmt.Errorf("party %d: msm: got %v, want 8G", party, got)
	}
	return nil
}

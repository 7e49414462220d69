// Package directory holds the reference lists an intake screen selects from.
package directory

import (
	"context"
	"sync"
)

// Source provides the reference lists. The backend client satisfies it.
type Source interface {
	ListPatients(ctx context.Context) ([]Patient, error)
	ListProviders(ctx context.Context) ([]Provider, error)
}

// Directory caches the patient and provider lists fetched from the upstream
// backend and answers lookups by identifier. A failed fetch degrades to an
// empty list for that entity type; it never fails a screen and never blocks
// the other fetch.
type Directory struct {
	mu        sync.RWMutex
	source    Source
	patients  []Patient
	providers []Provider
}

func New(source Source) *Directory {
	return &Directory{source: source}
}

// Refresh re-fetches both lists. The fetches run independently; each failure
// is absorbed by substituting an empty list.
func (d *Directory) Refresh(ctx context.Context) {
	var wg sync.WaitGroup
	var patients []Patient
	var providers []Provider

	wg.Add(2)
	go func() {
		defer wg.Done()
		if fetched, err := d.source.ListPatients(ctx); err == nil {
			patients = fetched
		}
	}()
	go func() {
		defer wg.Done()
		if fetched, err := d.source.ListProviders(ctx); err == nil {
			providers = fetched
		}
	}()
	wg.Wait()

	d.mu.Lock()
	d.patients = patients
	d.providers = providers
	d.mu.Unlock()
}

// Patients returns a copy of the cached patient list.
func (d *Directory) Patients() []Patient {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Patient, len(d.patients))
	copy(out, d.patients)
	return out
}

// Providers returns a copy of the cached provider list.
func (d *Directory) Providers() []Provider {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Provider, len(d.providers))
	copy(out, d.providers)
	return out
}

// FindPatient looks up a patient by identifier.
func (d *Directory) FindPatient(id string) (*Patient, bool) {
	if id == "" {
		return nil, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for i := range d.patients {
		if d.patients[i].PatientID == id {
			p := d.patients[i]
			return &p, true
		}
	}
	return nil, false
}

// FindProvider looks up a provider by identifier.
func (d *Directory) FindProvider(id string) (*Provider, bool) {
	if id == "" {
		return nil, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for i := range d.providers {
		if d.providers[i].ProviderID == id {
			p := d.providers[i]
			return &p, true
		}
	}
	return nil, false
}

// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package sysstat reports CPU and RAM usage while a long directory walk or
// parallel batch decode is in progress.
package sysstat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"gopmf/pkg/log"
)

// Status stores a CPU/RAM usage sample.
type Status struct {
	CPUUsage int `json:"cpuUsage"`
	RAMUsage int `json:"ramUsage"`
}

type (
	cpuFunc func(context.Context, time.Duration, bool) ([]float64, error)
	ramFunc func() (*mem.VirtualMemoryStat, error)
)

// Reporter polls system load on an interval, used to annotate batch
// directory walks over large GoPro libraries.
type Reporter struct {
	cpu cpuFunc
	ram ramFunc

	duration time.Duration

	status Status
	log    *log.Logger
	mu     sync.Mutex
	o      sync.Once
}

// New returns a new Reporter.
func New(log *log.Logger) *Reporter {
	return &Reporter{
		cpu: cpu.PercentWithContext,
		ram: mem.VirtualMemory,

		duration: 2 * time.Second,

		log: log,
	}
}

func (r *Reporter) update(ctx context.Context) error {
	cpuUsage, err := r.cpu(ctx, r.duration, false)
	if err != nil {
		return fmt.Errorf("could not get cpu usage: %w", err)
	}
	ramUsage, err := r.ram()
	if err != nil {
		return fmt.Errorf("could not get ram usage: %w", err)
	}

	r.mu.Lock()
	r.status = Status{
		CPUUsage: int(cpuUsage[0]),
		RAMUsage: int(ramUsage.UsedPercent),
	}
	r.mu.Unlock()

	return nil
}

// Loop updates the status once per interval until ctx is canceled.
// Intended to run as a goroutine alongside a session builder's directory
// walk over a large GoPro library.
func (r *Reporter) Loop(ctx context.Context) {
	r.o.Do(func() {
		for {
			if ctx.Err() != nil {
				return
			}
			if err := r.update(ctx); err != nil {
				r.log.Error().Src("sysstat").Msgf("could not update system status: %v", err)
			}
		}
	})
}

// Status returns the most recent CPU/RAM sample.
func (r *Reporter) Status() Status {
	defer r.mu.Unlock()
	r.mu.Lock()
	return r.status
}

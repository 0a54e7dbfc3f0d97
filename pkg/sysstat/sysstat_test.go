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

package sysstat

import (
	"context"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/require"

	"gopmf/pkg/log"
)

func TestReporterUpdate(t *testing.T) {
	r := New(log.NewMockLogger())
	r.cpu = func(context.Context, time.Duration, bool) ([]float64, error) {
		return []float64{12.5}, nil
	}
	r.ram = func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{UsedPercent: 40}, nil
	}

	err := r.update(context.Background())
	require.NoError(t, err)
	require.Equal(t, Status{CPUUsage: 12, RAMUsage: 40}, r.Status())
}

func TestReporterUpdateCPUErr(t *testing.T) {
	r := New(log.NewMockLogger())
	r.cpu = func(context.Context, time.Duration, bool) ([]float64, error) {
		return nil, context.DeadlineExceeded
	}

	err := r.update(context.Background())
	require.Error(t, err)
}

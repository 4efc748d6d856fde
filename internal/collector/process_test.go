package collector

import "testing"

func TestRankProcesses(t *testing.T) {
	procs := func() []RawProcess {
		return []RawProcess{
			{PID: 30, CPU: 5},
			{PID: 10, CPU: 50},
			{PID: 20, CPU: 5},
			{PID: 40, CPU: 0},
		}
	}

	tests := []struct {
		name string
		topN int
		want []int32
	}{
		{"all by pid", 0, []int32{10, 20, 30, 40}},
		{"top two by cpu", 2, []int32{10, 20}},
		{"top larger than table", 10, []int32{10, 20, 30, 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rankProcesses(procs(), tt.topN)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i, pid := range tt.want {
				if got[i].PID != pid {
					t.Errorf("got[%d].PID = %d, want %d", i, got[i].PID, pid)
				}
			}
		})
	}
}

func TestRankProcesses_Empty(t *testing.T) {
	got := rankProcesses([]RawProcess{}, 0)
	if got == nil || len(got) != 0 {
		t.Errorf("rankProcesses(empty) = %v, want empty non-nil slice", got)
	}
}

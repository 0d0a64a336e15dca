package rotcalc

import (
	"fmt"
	"sort"
	"sync"
)

// Row is a Result rendered for display: every angle formatted to one
// decimal place, absent azimuth candidates rendered as "NaN". Rows are
// what the original operator table shows, keyed by the HH:MM:SS label.
type Row struct {
	Time       string `json:"time"`
	Name       string `json:"name"`
	RA         string `json:"ra"`
	Dec        string `json:"dec"`
	PA         string `json:"pa_deg"`
	PangStart  string `json:"pang_start_deg"`
	PangStop   string `json:"pang_stop_deg"`
	Rot1Start  string `json:"rot1_start_deg"`
	Rot1Stop   string `json:"rot1_stop_deg"`
	Rot2Start  string `json:"rot2_start_deg"`
	Rot2Stop   string `json:"rot2_stop_deg"`
	RotChosen  string `json:"rot_chosen"`
	Offset     string `json:"offset_angle"`
	ElStart    string `json:"el_start_deg"`
	ElStop     string `json:"el_stop_deg"`
	Az1Start   string `json:"az1_start_deg"`
	Az1Stop    string `json:"az1_stop_deg"`
	Az2Start   string `json:"az2_start_deg"`
	Az2Stop    string `json:"az2_stop_deg"`
	AzChosen   string `json:"az_chosen"`
}

func deg1(v float64) string { return fmt.Sprintf("%.1f", v) }

// FormatRow renders a Result as a display row.
func FormatRow(r Result) Row {
	return Row{
		Time:      r.TimeLabel,
		Name:      r.Name,
		RA:        r.RAStr,
		Dec:       r.DecStr,
		PA:        deg1(r.PADeg),
		PangStart: deg1(r.PangStartDeg),
		PangStop:  deg1(r.PangStopDeg),
		Rot1Start: deg1(r.Rot1.StartDeg),
		Rot1Stop:  deg1(r.Rot1.StopDeg),
		Rot2Start: deg1(r.Rot2.StartDeg),
		Rot2Stop:  deg1(r.Rot2.StopDeg),
		RotChosen: deg1(r.RotChosen.StartDeg),
		Offset:    deg1(r.OffsetDeg),
		ElStart:   deg1(r.ElStartDeg),
		ElStop:    deg1(r.ElStopDeg),
		Az1Start:  deg1(r.Az1.StartDeg),
		Az1Stop:   deg1(r.Az1.StopDeg),
		Az2Start:  deg1(r.Az2.StartDeg),
		Az2Stop:   deg1(r.Az2.StopDeg),
		AzChosen:  deg1(r.AzChosen.StartDeg),
	}
}

// ResultLog accumulates solve rows keyed by their time label. Repeated
// solves within the same second overwrite the earlier row (last write
// wins); there is no dedup beyond the key.
type ResultLog struct {
	mu   sync.Mutex
	rows map[string]Row
}

// NewResultLog creates an empty result log.
func NewResultLog() *ResultLog {
	return &ResultLog{rows: make(map[string]Row)}
}

// Add stores the row for the result's time label.
func (l *ResultLog) Add(r Result) {
	row := FormatRow(r)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows[row.Time] = row
}

// Rows returns the accumulated rows ordered by time label.
func (l *ResultLog) Rows() []Row {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Row, 0, len(l.rows))
	for _, row := range l.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// Clear drops all accumulated rows.
func (l *ResultLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = make(map[string]Row)
}

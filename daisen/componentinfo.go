package daisen

import (
	"context"
	"fmt"
	"sort"
)

// TimeValue is one dot of a time series.
type TimeValue struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// ComponentInfo is a time series of one metric of one component.
type ComponentInfo struct {
	Name      string      `json:"name"`
	InfoType  string      `json:"info_type"`
	StartTime uint64      `json:"start_time"`
	EndTime   uint64      `json:"end_time"`
	Data      []TimeValue `json:"data"`
}

// InfoTypes lists the metrics that ComponentInfo can compute.
var InfoTypes = []string{
	"TaskStartCount", "TaskCompleteCount", "AvgLatency", "ConcurrentTask",
}

type infoRequest struct {
	compName   string
	infoType   string
	startTime  uint64
	endTime    uint64
	numDots    int
	binCycles  float64
	tasksInBin func(tasks []Task, start, end float64) float64
}

func (r *traceReader) componentInfo(
	ctx context.Context,
	compName, infoType string,
	startTime, endTime uint64,
	numDots int,
) (*ComponentInfo, error) {
	if numDots <= 0 || endTime <= startTime {
		return nil, fmt.Errorf("invalid range [%d, %d) with %d dots",
			startTime, endTime, numDots)
	}

	req := infoRequest{
		compName:  compName,
		infoType:  infoType,
		startTime: startTime,
		endTime:   endTime,
		numDots:   numDots,
		binCycles: float64(endTime-startTime) / float64(numDots),
	}

	switch infoType {
	case "TaskStartCount":
		req.tasksInBin = req.rate(func(t Task) uint64 { return t.StartTime })
	case "TaskCompleteCount":
		req.tasksInBin = req.rate(func(t Task) uint64 { return t.EndTime })
	case "AvgLatency":
		req.tasksInBin = avgLatency
	case "ConcurrentTask":
		return r.concurrentTasks(ctx, req)
	default:
		return nil, fmt.Errorf("unknown info_type %s", infoType)
	}

	tasks, err := r.ListTasks(ctx, req.query())
	if err != nil {
		return nil, err
	}

	info := req.newInfo()
	for i := 0; i < numDots; i++ {
		start, end := req.bin(i)
		info.Data = append(info.Data, TimeValue{
			Time:  start + 0.5*req.binCycles,
			Value: req.tasksInBin(tasks, start, end),
		})
	}

	return info, nil
}

func (req infoRequest) query() TaskQuery {
	return TaskQuery{
		Where:           req.compName,
		EnableTimeRange: true,
		StartTime:       req.startTime,
		EndTime:         req.endTime,
	}
}

func (req infoRequest) newInfo() *ComponentInfo {
	return &ComponentInfo{
		Name:      req.compName,
		InfoType:  req.infoType,
		StartTime: req.startTime,
		EndTime:   req.endTime,
	}
}

func (req infoRequest) bin(i int) (start, end float64) {
	start = float64(req.startTime) + float64(i)*req.binCycles
	return start, start + req.binCycles
}

func (req infoRequest) rate(
	at func(Task) uint64,
) func([]Task, float64, float64) float64 {
	return func(tasks []Task, start, end float64) float64 {
		count := 0

		for _, t := range tasks {
			if v := float64(at(t)); v >= start && v < end {
				count++
			}
		}

		return float64(count) / req.binCycles
	}
}

func avgLatency(tasks []Task, start, end float64) float64 {
	sum := 0.0
	count := 0

	for _, t := range tasks {
		if v := float64(t.EndTime); v >= start && v < end {
			sum += float64(t.EndTime - t.StartTime)
			count++
		}
	}

	if count == 0 {
		return 0
	}

	return sum / float64(count)
}

type timestamp struct {
	time    float64
	isStart bool
}

// concurrentTasks reports the time-weighted number of running tasks in each
// bin.
func (r *traceReader) concurrentTasks(
	ctx context.Context,
	req infoRequest,
) (*ComponentInfo, error) {
	tasks, err := r.ListTasks(ctx, req.query())
	if err != nil {
		return nil, err
	}

	stamps := make([]timestamp, 0, 2*len(tasks))
	for _, t := range tasks {
		stamps = append(stamps,
			timestamp{time: float64(t.StartTime), isStart: true},
			timestamp{time: float64(t.EndTime), isStart: false})
	}

	sort.SliceStable(stamps, func(i, j int) bool {
		return stamps[i].time < stamps[j].time
	})

	info := req.newInfo()
	running := 0
	next := 0

	for i := 0; i < req.numDots; i++ {
		start, end := req.bin(i)
		weighted := 0.0
		last := start

		for ; next < len(stamps) && stamps[next].time < end; next++ {
			s := stamps[next]
			if s.time > last {
				weighted += float64(running) * (s.time - last)
				last = s.time
			}

			if s.isStart {
				running++
			} else {
				running--
			}
		}

		weighted += float64(running) * (end - last)
		info.Data = append(info.Data, TimeValue{
			Time:  start + 0.5*req.binCycles,
			Value: weighted / req.binCycles,
		})
	}

	return info, nil
}

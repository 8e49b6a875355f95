package dataset

import "time"

// SplitAt partitions the panel at a cutoff date: train takes every record
// strictly before the cutoff, test takes the rest. A single global cutoff
// guarantees max(train dates) < min(test dates) for every entity.
//
// Returns an EmptyPartitionError if either side ends up empty.
func SplitAt(p *Panel, cutoff time.Time) (train, test *Panel, err error) {
	train = &Panel{Exog: append([]string(nil), p.Exog...)}
	test = &Panel{Exog: append([]string(nil), p.Exog...)}

	for _, r := range p.Records {
		if r.Date.Before(cutoff) {
			train.Records = append(train.Records, r)
		} else {
			test.Records = append(test.Records, r)
		}
	}

	c := cutoff.Format("2006-01-02")
	if len(train.Records) == 0 {
		return nil, nil, &EmptyPartitionError{Side: "train", Cutoff: c}
	}
	if len(test.Records) == 0 {
		return nil, nil, &EmptyPartitionError{Side: "test", Cutoff: c}
	}
	return train, test, nil
}

// CutoffPeriodsBeforeMax returns the date n monthly periods before the
// panel's latest date, for use as a SplitAt cutoff when no absolute test
// date is configured.
func CutoffPeriodsBeforeMax(p *Panel, n int) time.Time {
	return p.MaxDate().AddDate(0, -n, 0)
}

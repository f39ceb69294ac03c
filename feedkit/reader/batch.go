package reader

import "github.com/sirupsen/logrus"

// batchReader groups instances into indexed batches, honoring the last-
// example policy for the tail of an epoch.
type batchReader struct {
	params   *Params
	reader   InstanceReader
	batchIdx uint64
}

func newBatchReader(params *Params, reader InstanceReader) *batchReader {
	return &batchReader{params: params, reader: reader}
}

// ReadBatch returns the next batch, or (nil, nil) at the end of the epoch.
func (r *batchReader) ReadBatch() (*InstanceBatch, error) {
	size := r.params.BatchSize

	instances := make([]Instance, 0, size)
	var sizeBytes uint64
	for len(instances) < size {
		ins, err := r.reader.ReadInstance()
		if err != nil {
			for i := range instances {
				instances[i].Release()
			}
			return nil, err
		}
		if ins == nil {
			break
		}
		sizeBytes += uint64(ins.Bits.Len())
		instances = append(instances, *ins)
	}

	n := len(instances)
	if n == 0 {
		return nil, nil
	}

	padding := 0
	if n < size {
		switch r.params.LastExampleHandling {
		case LastExampleNone:
		case LastExampleDropWarn:
			logrus.Warnf("reader: dropping the last example of %d instance(s)", n)
			fallthrough
		case LastExampleDrop:
			for i := range instances {
				instances[i].Release()
			}
			return nil, nil
		case LastExamplePadWarn:
			logrus.Warnf("reader: padding the last example with %d instance(s)", size-n)
			fallthrough
		case LastExamplePad:
			padding = size - n
			for len(instances) < size {
				instances = append(instances, Instance{})
			}
		}
	}

	batch := &InstanceBatch{
		Instances: instances,
		Index:     r.batchIdx,
		SizeBytes: sizeBytes,
		Padding:   padding,
	}
	r.batchIdx++
	return batch, nil
}

func (r *batchReader) Reset() error {
	r.batchIdx = 0
	return r.reader.Reset()
}

package policy

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/ope-controller/internal/batch"
)

// #region wire-names
const (
	serviceName      = "ope.PolicyService"
	actionProbMethod = "/" + serviceName + "/ActionProb"

	fieldCount      = "count"
	fieldObs        = "obs"
	fieldActions    = "actions"
	fieldActionProb = "action_prob"

	// maxRequestSteps caps the step count a server accepts in one request.
	maxRequestSteps = 1 << 20
)

// #endregion wire-names

// #region encode
// encodeRequest carries the columns a remote policy needs: step count,
// observations and taken actions. Rewards and behavior probabilities stay local.
func encodeRequest(b batch.SampleBatch) (*structpb.Struct, error) {
	fields := map[string]interface{}{
		fieldCount: b.Count(),
	}
	if b.Obs != nil {
		obs := make([]interface{}, len(b.Obs))
		for i, o := range b.Obs {
			obs[i] = o
		}
		fields[fieldObs] = obs
	}
	if b.Actions != nil {
		actions := make([]interface{}, len(b.Actions))
		for i, a := range b.Actions {
			actions[i] = a
		}
		fields[fieldActions] = actions
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return s, nil
}

func encodeResponse(probs []float64) (*structpb.Struct, error) {
	list := make([]interface{}, len(probs))
	for i, p := range probs {
		list[i] = p
	}
	return structpb.NewStruct(map[string]interface{}{fieldActionProb: list})
}

// #endregion encode

// #region decode
// decodeRequest rebuilds a reward-less batch from a request. Rewards are
// zero-filled so Count matches the sender's step count. Present obs and
// actions lists must have exactly count entries.
func decodeRequest(s *structpb.Struct) (batch.SampleBatch, error) {
	f := s.GetFields()
	countVal, ok := f[fieldCount]
	if !ok {
		return batch.SampleBatch{}, fmt.Errorf("request missing %q", fieldCount)
	}
	n, err := stepCount(countVal)
	if err != nil {
		return batch.SampleBatch{}, err
	}

	b := batch.SampleBatch{Rewards: make([]float64, n)}
	if v, ok := f[fieldObs]; ok {
		vals, err := listOf(fieldObs, v, n)
		if err != nil {
			return batch.SampleBatch{}, err
		}
		b.Obs = make([]string, n)
		for i, o := range vals {
			str, ok := o.GetKind().(*structpb.Value_StringValue)
			if !ok {
				return batch.SampleBatch{}, fmt.Errorf("%s[%d] is not a string", fieldObs, i)
			}
			b.Obs[i] = str.StringValue
		}
	}
	if v, ok := f[fieldActions]; ok {
		vals, err := listOf(fieldActions, v, n)
		if err != nil {
			return batch.SampleBatch{}, err
		}
		b.Actions = make([]int64, n)
		for i, a := range vals {
			num, err := number(fieldActions, i, a)
			if err != nil {
				return batch.SampleBatch{}, err
			}
			if num != math.Trunc(num) || math.Abs(num) > 1<<53 {
				return batch.SampleBatch{}, fmt.Errorf("%s[%d] = %v is not an integer", fieldActions, i, num)
			}
			b.Actions[i] = int64(num)
		}
	}
	return b, nil
}

func decodeResponse(s *structpb.Struct) ([]float64, error) {
	v, ok := s.GetFields()[fieldActionProb]
	if !ok {
		return nil, fmt.Errorf("response missing %q", fieldActionProb)
	}
	list, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%s is not a list", fieldActionProb)
	}
	vals := list.ListValue.GetValues()
	out := make([]float64, len(vals))
	for i, p := range vals {
		num, err := number(fieldActionProb, i, p)
		if err != nil {
			return nil, err
		}
		out[i] = num
	}
	return out, nil
}

// stepCount reads the count field as a whole number in [0, maxRequestSteps].
func stepCount(v *structpb.Value) (int, error) {
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%q is not a number", fieldCount)
	}
	c := num.NumberValue
	if math.IsNaN(c) || c != math.Trunc(c) {
		return 0, fmt.Errorf("%q = %v is not a whole number", fieldCount, c)
	}
	if c < 0 || c > maxRequestSteps {
		return 0, fmt.Errorf("%q = %v outside [0, %d]", fieldCount, c, maxRequestSteps)
	}
	return int(c), nil
}

func listOf(field string, v *structpb.Value, n int) ([]*structpb.Value, error) {
	list, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%s is not a list", field)
	}
	vals := list.ListValue.GetValues()
	if len(vals) != n {
		return nil, fmt.Errorf("%s has %d entries for %d steps", field, len(vals), n)
	}
	return vals, nil
}

func number(field string, i int, v *structpb.Value) (float64, error) {
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%s[%d] is not a number", field, i)
	}
	return num.NumberValue, nil
}

// #endregion decode

package features

import (
	"fmt"

	apperr "github.com/yungbote/movielens-insights/internal/pkg/errors"
	"github.com/yungbote/movielens-insights/internal/types"
)

// Encoder turns users into [gender one-hot] ++ [occupation one-hot] ++ [age].
type Encoder struct {
	Gender     *StringIndex
	Occupation *StringIndex
}

// Fit builds the category indexes from the observed users, in input order.
func Fit(users []types.User) (*Encoder, error) {
	if len(users) == 0 {
		return nil, apperr.Degenerate("no users to encode")
	}
	genders := make([]string, len(users))
	occupations := make([]string, len(users))
	for i, u := range users {
		genders[i] = u.Gender
		occupations[i] = u.Occupation
	}
	return &Encoder{
		Gender:     FitStringIndex(genders),
		Occupation: FitStringIndex(occupations),
	}, nil
}

func (e *Encoder) Dim() int {
	return e.Gender.Len() + e.Occupation.Len() + 1
}

// FeatureNames labels each vector component, e.g. "gender=M", "occupation=other", "age".
func (e *Encoder) FeatureNames() []string {
	out := make([]string, 0, e.Dim())
	for _, l := range e.Gender.Labels {
		out = append(out, "gender="+l)
	}
	for _, l := range e.Occupation.Labels {
		out = append(out, "occupation="+l)
	}
	return append(out, "age")
}

func (e *Encoder) Encode(u types.User) (types.FeatureVector, error) {
	vec := make([]float64, e.Dim())
	g := e.Gender.Len()
	o := e.Occupation.Len()
	if !e.Gender.OneHot(vec[:g], u.Gender) {
		return types.FeatureVector{}, apperr.Invalid("user %d: unseen gender %q", u.ID, u.Gender)
	}
	if !e.Occupation.OneHot(vec[g:g+o], u.Occupation) {
		return types.FeatureVector{}, apperr.Invalid("user %d: unseen occupation %q", u.ID, u.Occupation)
	}
	vec[g+o] = float64(u.Age)
	return types.FeatureVector{UserID: u.ID, Vector: vec}, nil
}

func (e *Encoder) Transform(users []types.User) ([]types.FeatureVector, error) {
	out := make([]types.FeatureVector, 0, len(users))
	for _, u := range users {
		fv, err := e.Encode(u)
		if err != nil {
			return nil, err
		}
		out = append(out, fv)
	}
	return out, nil
}

// EncodeUsers fits an Encoder on users and transforms them in one pass.
func EncodeUsers(users []types.User) ([]types.FeatureVector, *Encoder, error) {
	enc, err := Fit(users)
	if err != nil {
		return nil, nil, err
	}
	vecs, err := enc.Transform(users)
	if err != nil {
		return nil, nil, fmt.Errorf("encode users: %w", err)
	}
	return vecs, enc, nil
}

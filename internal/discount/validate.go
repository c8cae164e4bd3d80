package discount

import (
	"fmt"
	"time"

	validator "github.com/go-playground/validator/v10"

	"github.com/velmart/pricing-core/internal/common"
	"github.com/velmart/pricing-core/internal/rule"
)

// Draft is the administrative input for creating or editing a discount.
// Validation here is a boundary concern and raises explicit user-facing
// errors; it is entirely separate from calculation, which never raises for a
// bad rule.
type Draft struct {
	Type            int64      `json:"type" validate:"required"`
	Value           int64      `json:"value" validate:"required,gt=0"`
	ValueType       int64      `json:"valueType" validate:"required,oneof=1 2"`
	Status          int64      `json:"status" validate:"required,oneof=1 2 3 4"`
	SponsorID       int64      `json:"sponsorId" validate:"omitempty,gt=0"`
	StartDate       *time.Time `json:"startDate"`
	EndDate         *time.Time `json:"endDate"`
	PromoCodeOnly   bool       `json:"promoCodeOnly"`
	ProductQtyLimit int64      `json:"productQtyLimit" validate:"omitempty,gt=0"`
	OfferIDs        []int64    `json:"offerIds" validate:"omitempty,dive,gt=0"`
	BrandIDs        []int64    `json:"brandIds" validate:"omitempty,dive,gt=0"`
	CategoryIDs     []int64    `json:"categoryIds" validate:"omitempty,dive,gt=0"`
	BundleOfferIDs  []int64    `json:"bundleOfferIds" validate:"omitempty,min=2,dive,gt=0"`
	SynergyIDs      []int64    `json:"synergyIds" validate:"omitempty,dive,gt=0"`
}

// Validator wraps the struct validator with the discount-specific semantic checks.
type Validator struct {
	V *validator.Validate
}

// NewValidator constructs a Validator with a fresh validate instance.
func NewValidator() Validator {
	return Validator{V: validator.New()}
}

// Validate returns a user-facing AppError describing the first problem found.
func (dv Validator) Validate(in Draft) error {
	if dv.V != nil {
		if err := dv.V.Struct(in); err != nil {
			if fieldErrs, ok := err.(validator.ValidationErrors); ok {
				details := make([]string, 0, len(fieldErrs))
				for _, fe := range fieldErrs {
					details = append(details, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
				}
				return common.ValidationError("invalid discount payload", details)
			}
			return common.ValidationError("invalid discount payload", nil)
		}
	}

	t := Type(in.Type)
	if t.ApplyPriority() == 99 {
		return common.ValidationError(fmt.Sprintf("unknown discount type %d", in.Type), nil)
	}
	if rule.ValueType(in.ValueType) == rule.ValuePercent && in.Value > 100 {
		return common.ValidationError("percentage value must not exceed 100", nil)
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return common.ValidationError("end date precedes start date", nil)
	}
	switch t {
	case TypeOffer, TypeMasterClass:
		if len(in.OfferIDs) == 0 {
			return common.ValidationError("offer discount requires at least one offer", nil)
		}
	case TypeBundleOffer:
		if len(in.BundleOfferIDs) < 2 {
			return common.ValidationError("bundle discount requires at least two offers", nil)
		}
	case TypeBrand:
		if len(in.BrandIDs) == 0 {
			return common.ValidationError("brand discount requires at least one brand", nil)
		}
	case TypeCategory:
		if len(in.CategoryIDs) == 0 {
			return common.ValidationError("category discount requires at least one category", nil)
		}
	}
	return nil
}

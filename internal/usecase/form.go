package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/totegamma/eform-core/internal/domain"
	"github.com/totegamma/eform-core/internal/schema"
)

const slugLanguage = "fr"

// Slugify derives the form-unique key of a field from its label.
func Slugify(label string) string {
	return slug.MakeLang(label, slugLanguage)
}

type FormUsecase struct {
	repo  FormRepository
	types FieldTypeRepository
}

func NewFormUsecase(repo FormRepository, types FieldTypeRepository) *FormUsecase {
	return &FormUsecase{
		repo:  repo,
		types: types,
	}
}

// Create stores a new active form and grants it to the writer roles.
func (uc *FormUsecase) Create(ctx context.Context, input domain.FormInput) (domain.Form, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.Form{}, domain.BadRequestError{Message: "name is required"}
	}

	form := domain.Form{
		Code:        domain.NewCode(domain.CodePrefixForm),
		UUID:        uuid.NewString(),
		Name:        name,
		Description: input.Description,
		IsActive:    true,
	}

	return uc.repo.Create(ctx, form, domain.WriterRoles)
}

func (uc *FormUsecase) List(ctx context.Context) ([]domain.Form, error) {
	return uc.repo.List(ctx)
}

func (uc *FormUsecase) Get(ctx context.Context, id int64) (domain.Form, error) {
	return uc.repo.Get(ctx, id)
}

func (uc *FormUsecase) GetByUUID(ctx context.Context, formUUID string) (domain.Form, error) {
	if _, err := uuid.Parse(formUUID); err != nil {
		return domain.Form{}, domain.BadRequestError{Message: "invalid uuid"}
	}
	return uc.repo.GetByUUID(ctx, formUUID, false)
}

func (uc *FormUsecase) Update(ctx context.Context, id int64, input domain.FormInput) (domain.Form, error) {
	if strings.TrimSpace(input.Name) == "" {
		return domain.Form{}, domain.BadRequestError{Message: "name is required"}
	}
	return uc.repo.Update(ctx, id, input)
}

func (uc *FormUsecase) ChangeStatus(ctx context.Context, id int64) (domain.Form, error) {
	return uc.repo.ToggleActive(ctx, id)
}

func (uc *FormUsecase) Remove(ctx context.Context, id int64) (domain.Form, error) {
	return uc.repo.SoftDelete(ctx, id)
}

// Schema returns the validation schema submissions to the form are checked against.
func (uc *FormUsecase) Schema(ctx context.Context, formUUID string) (schema.Schema, error) {
	form, err := uc.GetByUUID(ctx, formUUID)
	if err != nil {
		return schema.Schema{}, err
	}
	if !form.IsActive {
		return schema.Schema{}, domain.ForbiddenError{Reason: "form is disabled"}
	}
	return schema.Compile(form.Fields), nil
}

// AddField appends a field at the end of the form.
func (uc *FormUsecase) AddField(ctx context.Context, formID int64, input domain.FieldInput) (domain.Field, error) {
	form, err := uc.repo.Get(ctx, formID)
	if err != nil {
		return domain.Field{}, err
	}

	field, err := uc.buildField(ctx, formID, input)
	if err != nil {
		return domain.Field{}, err
	}
	if field.UUID == "" {
		field.UUID = uuid.NewString()
	}

	for _, existing := range form.Fields {
		if existing.Slug == field.Slug {
			return domain.Field{}, errSlugTaken
		}
	}
	live := make([]domain.Field, 0, len(form.Fields)+1)
	live = append(live, form.Fields...)
	if err := checkFieldNames(append(live, field)); err != nil {
		return domain.Field{}, err
	}

	return uc.repo.AddField(ctx, formID, field)
}

// ReplaceFields reconciles the form's live fields with inputs by field uuid
// and re-ranks them in input order.
func (uc *FormUsecase) ReplaceFields(ctx context.Context, formID int64, inputs []domain.FieldInput) error {
	form, err := uc.repo.Get(ctx, formID)
	if err != nil {
		return err
	}

	plan, err := uc.planFields(ctx, form, inputs)
	if err != nil {
		return err
	}

	return uc.repo.ApplyFieldPlan(ctx, formID, plan)
}

// Duplicate deep-copies a form and its live fields.
func (uc *FormUsecase) Duplicate(ctx context.Context, formID int64) (domain.Form, error) {
	source, err := uc.repo.Get(ctx, formID)
	if err != nil {
		return domain.Form{}, err
	}

	sourceID := source.ID
	copied := domain.Form{
		Code:           domain.NewCode(domain.CodePrefixForm),
		UUID:           uuid.NewString(),
		Name:           source.Name + " - Copy",
		Description:    source.Description,
		IsActive:       true,
		DuplicatedFrom: &sourceID,
	}

	for i, f := range source.Fields {
		f.ID = 0
		f.FormID = 0
		f.Code = domain.NewCode(domain.CodePrefixField)
		f.Rank = i + 1
		copied.Fields = append(copied.Fields, f)
	}

	return uc.repo.Duplicate(ctx, sourceID, copied, domain.WriterRoles)
}

var errSlugTaken = domain.ConflictError{Reason: "the field already exists in this form"}

func errSelectValuesRequired() error {
	return domain.ConflictError{
		Reason: fmt.Sprintf("select values are required, separated by %q", schema.SelectDelimiter),
	}
}

func (uc *FormUsecase) buildField(ctx context.Context, formID int64, input domain.FieldInput) (domain.Field, error) {
	label := strings.TrimSpace(input.Label)
	if label == "" {
		return domain.Field{}, domain.BadRequestError{Message: "label is required"}
	}
	if input.UUID != "" {
		if _, err := uuid.Parse(input.UUID); err != nil {
			return domain.Field{}, domain.BadRequestError{Message: "invalid field uuid " + input.UUID}
		}
	}

	fieldType, err := uc.types.Get(ctx, input.FieldTypeID)
	if err != nil {
		return domain.Field{}, err
	}

	if fieldType.Value == domain.KindSelect && len(schema.SplitSelectValues(input.SelectValues)) == 0 {
		return domain.Field{}, errSelectValuesRequired()
	}

	s := Slugify(label)
	if s == "" {
		return domain.Field{}, domain.BadRequestError{Message: "label must contain a letter or a digit"}
	}

	return domain.Field{
		Code:         domain.NewCode(domain.CodePrefixField),
		FormID:       formID,
		FieldType:    fieldType,
		Label:        label,
		Slug:         s,
		UUID:         input.UUID,
		Description:  input.Description,
		Optional:     input.Optional,
		DefaultValue: input.DefaultValue,
		ExampleValue: input.ExampleValue,
		SelectValues: input.SelectValues,
	}, nil
}

func (uc *FormUsecase) planFields(ctx context.Context, form domain.Form, inputs []domain.FieldInput) (domain.FieldPlan, error) {
	existing := make(map[string]domain.Field, len(form.Fields))
	for _, f := range form.Fields {
		existing[f.UUID] = f
	}

	plan := domain.FieldPlan{Order: make([]string, 0, len(inputs))}
	seen := make(map[string]struct{}, len(inputs))
	slugs := make(map[string]struct{}, len(inputs))

	for _, input := range inputs {
		if input.UUID == "" {
			return domain.FieldPlan{}, domain.BadRequestError{Message: "field uuid is required"}
		}
		if _, err := uuid.Parse(input.UUID); err != nil {
			return domain.FieldPlan{}, domain.BadRequestError{Message: "invalid field uuid " + input.UUID}
		}
		if _, dup := seen[input.UUID]; dup {
			return domain.FieldPlan{}, domain.BadRequestError{Message: "duplicate field uuid " + input.UUID}
		}
		seen[input.UUID] = struct{}{}
		plan.Order = append(plan.Order, input.UUID)

		if kept, ok := existing[input.UUID]; ok {
			slugs[kept.Slug] = struct{}{}
		}
	}

	for _, input := range inputs {
		kept, ok := existing[input.UUID]
		if !ok {
			field, err := uc.buildField(ctx, form.ID, input)
			if err != nil {
				return domain.FieldPlan{}, err
			}
			if _, taken := slugs[field.Slug]; taken {
				return domain.FieldPlan{}, errSlugTaken
			}
			slugs[field.Slug] = struct{}{}
			plan.Create = append(plan.Create, field)
			continue
		}

		label := strings.TrimSpace(input.Label)
		if label == "" {
			return domain.FieldPlan{}, domain.BadRequestError{Message: "label is required"}
		}
		if kept.FieldType.Value == domain.KindSelect && len(schema.SplitSelectValues(input.SelectValues)) == 0 {
			return domain.FieldPlan{}, errSelectValuesRequired()
		}

		kept.Label = label
		kept.Description = input.Description
		kept.Optional = input.Optional
		kept.DefaultValue = input.DefaultValue
		kept.ExampleValue = input.ExampleValue
		kept.SelectValues = input.SelectValues
		plan.Update = append(plan.Update, kept)
	}

	for _, f := range form.Fields {
		if _, ok := seen[f.UUID]; !ok {
			plan.Delete = append(plan.Delete, f.ID)
		}
	}

	live := make([]domain.Field, 0, len(plan.Update)+len(plan.Create))
	live = append(live, plan.Update...)
	live = append(live, plan.Create...)
	if err := checkFieldNames(live); err != nil {
		return domain.FieldPlan{}, err
	}

	return plan, nil
}

// checkFieldNames rejects two live fields answering to the same name.
// A field answers to its label, its slug and the slug of its label, so that
// records rebuilt by label and payloads keyed by slug stay unambiguous.
func checkFieldNames(fields []domain.Field) error {
	owner := make(map[string]int, 3*len(fields))
	for i, f := range fields {
		if f.IsDeleted {
			continue
		}
		for _, name := range []string{f.Label, f.Slug, Slugify(f.Label)} {
			if name == "" {
				continue
			}
			if j, ok := owner[name]; ok && j != i {
				return domain.ConflictError{
					Reason: fmt.Sprintf("the label %q is already used by another field of this form", f.Label),
				}
			}
			owner[name] = i
		}
	}
	return nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dlovans/formrt/pkg/formrt"
)

// formDocument is the stored shape of a form. Conditional logic and formulas
// are kept as JSON text, the way the authoring editor saves them.
type formDocument struct {
	ID              string            `bson:"_id"`
	Title           string            `bson:"title,omitempty"`
	Description     string            `bson:"description,omitempty"`
	ThankYouMessage string            `bson:"thankYouMessage,omitempty"`
	RedirectURL     string            `bson:"redirectUrl,omitempty"`
	Layout          *layoutDocument   `bson:"layout,omitempty"`
	Fields          []fieldDocument   `bson:"fields"`
	Params          map[string]string `bson:"params,omitempty"`
	CreatedAt       time.Time         `bson:"createdAt"`
	UpdatedAt       time.Time         `bson:"updatedAt"`
}

type layoutDocument struct {
	Columns    int    `bson:"columns"`
	GridGap    string `bson:"gridGap"`
	Responsive bool   `bson:"responsive"`
}

type fieldDocument struct {
	ID               string                  `bson:"id"`
	Ref              string                  `bson:"ref,omitempty"`
	Type             string                  `bson:"type"`
	Label            string                  `bson:"label"`
	Description      string                  `bson:"description,omitempty"`
	Placeholder      string                  `bson:"placeholder,omitempty"`
	Width            string                  `bson:"width,omitempty"`
	OrderIndex       int                     `bson:"orderIndex"`
	ConditionalLogic string                  `bson:"conditionalLogic,omitempty"`
	Calculations     string                  `bson:"calculations,omitempty"`
	ValidationRules  *formrt.ValidationRules `bson:"validationRules,omitempty"`
}

type mongoStore struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoStore creates a form store backed by the "forms" collection.
func NewMongoStore(db *mongo.Database) FormStore {
	return &mongoStore{
		collection: db.Collection("forms"),
		now:        time.Now,
	}
}

func (s *mongoStore) Create(ctx context.Context, form *formrt.Form) (string, error) {
	if err := Prepare(form); err != nil {
		return "", err
	}
	doc, err := toDocument(form)
	if err != nil {
		return "", err
	}
	doc.CreatedAt = s.now()
	doc.UpdatedAt = doc.CreatedAt

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert form: %w", err)
	}
	return doc.ID, nil
}

func (s *mongoStore) Get(ctx context.Context, id string) (*formrt.Form, error) {
	var doc formDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrFormNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find form: %w", err)
	}
	return fromDocument(&doc), nil
}

func (s *mongoStore) Update(ctx context.Context, form *formrt.Form) error {
	if form == nil || form.ID == "" {
		return ErrFormNotFound
	}
	if err := Prepare(form); err != nil {
		return err
	}
	doc, err := toDocument(form)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"title":           doc.Title,
		"description":     doc.Description,
		"thankYouMessage": doc.ThankYouMessage,
		"redirectUrl":     doc.RedirectURL,
		"layout":          doc.Layout,
		"fields":          doc.Fields,
		"params":          doc.Params,
		"updatedAt":       s.now(),
	}}
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": doc.ID}, update)
	if err != nil {
		return fmt.Errorf("update form: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrFormNotFound
	}
	return nil
}

func (s *mongoStore) Delete(ctx context.Context, id string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete form: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrFormNotFound
	}
	return nil
}

func toDocument(form *formrt.Form) (*formDocument, error) {
	doc := &formDocument{
		ID:              form.ID,
		Title:           form.Title,
		Description:     form.Description,
		ThankYouMessage: form.ThankYouMessage,
		RedirectURL:     form.RedirectURL,
		Fields:          make([]fieldDocument, 0, len(form.Fields)),
		Params:          form.Params,
	}
	if form.Layout != nil {
		doc.Layout = &layoutDocument{
			Columns:    form.Layout.Columns,
			GridGap:    string(form.Layout.GridGap),
			Responsive: form.Layout.Responsive,
		}
	}

	for _, f := range form.Fields {
		fd := fieldDocument{
			ID:              f.ID,
			Ref:             f.Ref,
			Type:            string(f.Type),
			Label:           f.Label,
			Description:     f.Description,
			Placeholder:     f.Placeholder,
			Width:           string(f.Width),
			OrderIndex:      f.OrderIndex,
			ValidationRules: f.ValidationRules,
		}
		if f.ConditionalLogic != nil {
			data, err := json.Marshal(f.ConditionalLogic)
			if err != nil {
				return nil, fmt.Errorf("encode logic of field '%s': %w", f.ID, err)
			}
			fd.ConditionalLogic = string(data)
		}
		if f.Calculations != nil {
			data, err := json.Marshal(f.Calculations)
			if err != nil {
				return nil, fmt.Errorf("encode formula of field '%s': %w", f.ID, err)
			}
			fd.Calculations = string(data)
		}
		doc.Fields = append(doc.Fields, fd)
	}
	return doc, nil
}

func fromDocument(doc *formDocument) *formrt.Form {
	form := &formrt.Form{
		ID:              doc.ID,
		Title:           doc.Title,
		Description:     doc.Description,
		ThankYouMessage: doc.ThankYouMessage,
		RedirectURL:     doc.RedirectURL,
		Fields:          make([]formrt.Field, 0, len(doc.Fields)),
		Params:          doc.Params,
	}
	if doc.Layout != nil {
		form.Layout = &formrt.LayoutConfig{
			Columns:    doc.Layout.Columns,
			GridGap:    formrt.GridGap(doc.Layout.GridGap),
			Responsive: doc.Layout.Responsive,
		}
	}

	for _, fd := range doc.Fields {
		f := formrt.Field{
			ID:              fd.ID,
			Ref:             fd.Ref,
			Type:            formrt.FieldType(fd.Type),
			Label:           fd.Label,
			Description:     fd.Description,
			Placeholder:     fd.Placeholder,
			Width:           formrt.Width(fd.Width),
			OrderIndex:      fd.OrderIndex,
			ValidationRules: fd.ValidationRules,
		}
		if fd.ConditionalLogic != "" {
			f.ConditionalLogic = formrt.ParseLogic([]byte(fd.ConditionalLogic))
		}
		if fd.Calculations != "" {
			f.Calculations = formrt.ParseFormula([]byte(fd.Calculations))
		}
		form.Fields = append(form.Fields, f)
	}
	return form
}

package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/coursepilot/coursepilot/pkg/types"
)

// PutCourses writes one item per course under the tuple partition.
func (s *Store) PutCourses(ctx context.Context, courses []types.Course) error {
	for _, c := range courses {
		if err := s.putJSON(ctx, coursesPK(c.Institution, c.Term), courseSK(c.Code), c); err != nil {
			return fmt.Errorf("dynamodb put course %s: %w", c.Code, err)
		}
	}
	return nil
}

// GetCourses returns courses for the tuple, optionally filtered by code.
func (s *Store) GetCourses(ctx context.Context, term, institution string, codes []string) ([]types.Course, error) {
	items, err := s.queryPartition(ctx, coursesPK(institution, term))
	if err != nil {
		return nil, fmt.Errorf("dynamodb get courses: %w", err)
	}

	want := toSet(codes)
	var result []types.Course
	for _, item := range items {
		var c types.Course
		if err := decodeData(item, &c); err != nil {
			return nil, fmt.Errorf("dynamodb decode course: %w", err)
		}
		if len(want) > 0 && !want[strings.ToUpper(c.Code)] {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// PutSections writes one item per section under the tuple partition.
func (s *Store) PutSections(ctx context.Context, sections []types.Section) error {
	for _, sec := range sections {
		if err := s.putJSON(ctx, sectionsPK(sec.Institution, sec.Term), sectionSK(sec.ID), sec); err != nil {
			return fmt.Errorf("dynamodb put section %s: %w", sec.ID, err)
		}
	}
	return nil
}

// GetSections returns sections for the tuple, optionally filtered by course code.
func (s *Store) GetSections(ctx context.Context, term, institution string, courseCodes []string) ([]types.Section, error) {
	items, err := s.queryPartition(ctx, sectionsPK(institution, term))
	if err != nil {
		return nil, fmt.Errorf("dynamodb get sections: %w", err)
	}

	want := toSet(courseCodes)
	var result []types.Section
	for _, item := range items {
		var sec types.Section
		if err := decodeData(item, &sec); err != nil {
			return nil, fmt.Errorf("dynamodb decode section: %w", err)
		}
		if len(want) > 0 && !want[strings.ToUpper(sec.CourseCode)] {
			continue
		}
		result = append(result, sec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// PutInstructors writes one item per instructor under the institution partition.
func (s *Store) PutInstructors(ctx context.Context, instructors []types.Instructor) error {
	for _, ins := range instructors {
		if err := s.putJSON(ctx, instructorsPK(ins.Institution), instructorSK(ins.Name), ins); err != nil {
			return fmt.Errorf("dynamodb put instructor %s: %w", ins.Name, err)
		}
	}
	return nil
}

// GetInstructors returns instructors for the institution, optionally filtered
// by name.
func (s *Store) GetInstructors(ctx context.Context, institution string, names []string) ([]types.Instructor, error) {
	items, err := s.queryPartition(ctx, instructorsPK(institution))
	if err != nil {
		return nil, fmt.Errorf("dynamodb get instructors: %w", err)
	}

	want := toSet(names)
	var result []types.Instructor
	for _, item := range items {
		var ins types.Instructor
		if err := decodeData(item, &ins); err != nil {
			return nil, fmt.Errorf("dynamodb decode instructor: %w", err)
		}
		if len(want) > 0 && !want[strings.ToUpper(ins.Name)] {
			continue
		}
		result = append(result, ins)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// putJSON writes an item with the entity serialized into the data attribute.
func (s *Store) putJSON(ctx context.Context, pk, sk string, entity interface{}) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item: map[string]ddbtypes.AttributeValue{
			"PK":   &ddbtypes.AttributeValueMemberS{Value: pk},
			"SK":   &ddbtypes.AttributeValueMemberS{Value: sk},
			"data": &ddbtypes.AttributeValueMemberS{Value: string(data)},
		},
	})
	return err
}

// queryPartition pages through every item under a partition key.
func (s *Store) queryPartition(ctx context.Context, pk string) ([]map[string]ddbtypes.AttributeValue, error) {
	var items []map[string]ddbtypes.AttributeValue
	var startKey map[string]ddbtypes.AttributeValue
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              &s.tableName,
			KeyConditionExpression: aws.String("PK = :pk"),
			ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
				":pk": &ddbtypes.AttributeValueMemberS{Value: pk},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
		if out.LastEvaluatedKey == nil {
			return items, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// decodeData unmarshals the JSON payload from an item's data attribute.
func decodeData(item map[string]ddbtypes.AttributeValue, target interface{}) error {
	attr, ok := item["data"].(*ddbtypes.AttributeValueMemberS)
	if !ok {
		return fmt.Errorf("item missing data attribute")
	}
	return json.Unmarshal([]byte(attr.Value), target)
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToUpper(v)] = true
	}
	return set
}

package rule_test

import (
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/yeisme/outputvault/pkg/rule"
)

// fileRequest 模拟建档请求的校验结构.
type fileRequest struct {
	Name     string `rule:"required,max=250"`
	Revision int    `rule:"min=0"`
	TaskType string `rule:"required,uuid"`
}

// TestEngine 测试 Engine 函数返回非 nil 实例.
func TestEngine(t *testing.T) {
	engine := rule.Engine()
	if engine == nil {
		t.Error("Engine() returned nil")
	}
}

// TestValidateStruct 测试 ValidateStruct 对有效和无效结构体的验证.
func TestValidateStruct(t *testing.T) {
	valid := fileRequest{Name: "shot010_comp", Revision: 3, TaskType: "0e6e7c7c-1a9a-4b0d-9c9a-1f4f2b2f9a11"}

	if err := rule.ValidateStruct(valid); err != nil {
		t.Errorf("Expected no error for valid struct, got %v", err)
	}

	// 缺少 Name
	missingName := fileRequest{Revision: 3, TaskType: "0e6e7c7c-1a9a-4b0d-9c9a-1f4f2b2f9a11"}

	if err := rule.ValidateStruct(missingName); err == nil {
		t.Error("Expected error for missing name, got nil")
	}

	// 负修订号
	badRevision := fileRequest{Name: "shot010_comp", Revision: -1, TaskType: "0e6e7c7c-1a9a-4b0d-9c9a-1f4f2b2f9a11"}

	if err := rule.ValidateStruct(badRevision); err == nil {
		t.Error("Expected error for negative revision, got nil")
	}

	// task type 不是 uuid
	badTaskType := fileRequest{Name: "shot010_comp", Revision: 3, TaskType: "compositing"}

	if err := rule.ValidateStruct(badTaskType); err == nil {
		t.Error("Expected error for non-uuid task type, got nil")
	}
}

// TestValidateVar 测试 ValidateVar 对变量的验证.
func TestValidateVar(t *testing.T) {
	if err := rule.ValidateVar("2f0c3fb4-54b8-4b24-b3a3-57f1b7c2ad01", "required,uuid"); err != nil {
		t.Errorf("Expected no error for valid uuid, got %v", err)
	}

	if err := rule.ValidateVar("MUSTER:42", "required,uuid"); err == nil {
		t.Error("Expected error for non-uuid value, got nil")
	}

	if err := rule.ValidateVar(1, "min=1"); err != nil {
		t.Errorf("Expected no error for valid revision, got %v", err)
	}

	if err := rule.ValidateVar(0, "min=1"); err == nil {
		t.Error("Expected error for zero revision, got nil")
	}
}

// TestRegisterValidation 测试注册自定义验证.
func TestRegisterValidation(t *testing.T) {
	// 自定义验证：帧序列占位符（%0Nd）
	err := rule.RegisterValidation("frame_pattern", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}

		for i := 0; i+3 < len(str); i++ {
			if str[i] == '%' && str[i+1] == '0' && str[i+3] == 'd' {
				return true
			}
		}

		return false
	})
	if err != nil {
		t.Fatalf("Failed to register validation: %v", err)
	}

	if err := rule.ValidateVar("/render/shot010.%04d.exr", "frame_pattern"); err != nil {
		t.Errorf("Expected no error for sequence pattern, got %v", err)
	}

	if err := rule.ValidateVar("/render/shot010.mov", "frame_pattern"); err == nil {
		t.Error("Expected error for single-file path, got nil")
	}
}

// TestRegisterAlias 测试注册别名.
func TestRegisterAlias(t *testing.T) {
	rule.RegisterAlias("file_kind", "required,oneof=output children")

	if err := rule.ValidateVar("output", "file_kind"); err != nil {
		t.Errorf("Expected no error for valid kind with alias, got %v", err)
	}

	if err := rule.ValidateVar("working", "file_kind"); err == nil {
		t.Error("Expected error for unknown kind with alias, got nil")
	}
}

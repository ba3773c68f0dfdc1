package types

import (
	"errors"
	"fmt"
)

// MainComponent is the component every SmartThings device has. It is the only
// component that reports instantaneous power.
const MainComponent = "main"

// DeviceRole identifies one of the two devices we manage.
type DeviceRole string

const (
	DeviceRoleHouse DeviceRole = "house"
	DeviceRoleSolar DeviceRole = "solar"
)

// DeviceRoles lists the roles in the order they are processed and reported.
var DeviceRoles = []DeviceRole{DeviceRoleHouse, DeviceRoleSolar}

// ComponentMapping assigns a metric category to a component of a device.
type ComponentMapping struct {
	Component string   `json:"component"`
	Category  Category `json:"category"`
	// PowerCategory is the category whose average power is reported by the
	// powerMeter event on the main component. Defaults to Category.
	PowerCategory Category `json:"powerCategory,omitempty"`
}

// PowerSource returns the category used for the powerMeter event.
func (cm ComponentMapping) PowerSource() Category {
	if cm.PowerCategory != "" {
		return cm.PowerCategory
	}
	return cm.Category
}

// DeviceMapping is the static assignment of components to devices.
type DeviceMapping struct {
	House []ComponentMapping `json:"house"`
	Solar []ComponentMapping `json:"solar"`
}

// DefaultDeviceMapping returns the mapping used by the SmartThings devices the
// app creates on install. The house meter's main component tracks grid import
// while reporting the house load as its power, component1 tracks export and
// component2 tracks the house load.
func DefaultDeviceMapping() DeviceMapping {
	return DeviceMapping{
		House: []ComponentMapping{
			{Component: MainComponent, Category: CategoryImport, PowerCategory: CategoryConsumption},
			{Component: "component1", Category: CategoryExport},
			{Component: "component2", Category: CategoryConsumption},
		},
		Solar: []ComponentMapping{
			{Component: MainComponent, Category: CategoryProduction},
		},
	}
}

// Components returns the component mappings for the given role.
func (m DeviceMapping) Components(role DeviceRole) []ComponentMapping {
	switch role {
	case DeviceRoleHouse:
		return m.House
	case DeviceRoleSolar:
		return m.Solar
	}
	return nil
}

// Validate ensures every device has at least one component, no component is
// listed twice on a device and every category is known.
func (m DeviceMapping) Validate() error {
	var errs []error
	for _, role := range DeviceRoles {
		comps := m.Components(role)
		if len(comps) == 0 {
			errs = append(errs, fmt.Errorf("%s device has no components", role))
			continue
		}
		seen := make(map[string]bool, len(comps))
		for _, cm := range comps {
			if cm.Component == "" {
				errs = append(errs, fmt.Errorf("%s device has a component with no name", role))
				continue
			}
			if seen[cm.Component] {
				errs = append(errs, fmt.Errorf("%s device lists component %s twice", role, cm.Component))
			}
			seen[cm.Component] = true
			if !cm.Category.Valid() {
				errs = append(errs, fmt.Errorf("%s/%s has unknown category %q", role, cm.Component, cm.Category))
			}
			if cm.PowerCategory != "" && !cm.PowerCategory.Valid() {
				errs = append(errs, fmt.Errorf("%s/%s has unknown power category %q", role, cm.Component, cm.PowerCategory))
			}
		}
	}
	return errors.Join(errs...)
}

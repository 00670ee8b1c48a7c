package events

// Native event names of the session wide streams.
const (
	NativeProfileLoaded              = "did_load_latest_profile"
	NativeInstallationDetailsSuccess = "on_installation_details_success"
	NativeInstallationDetailsFail    = "on_installation_details_fail"
)

// ProfileLoaded is pushed whenever the engine refreshes the user profile.
type ProfileLoaded struct {
	Profile Profile `json:"profile"`
}

func (ProfileLoaded) bridgeEvent() {}

// InstallationDetailsSuccess carries install attribution once it resolved.
type InstallationDetailsSuccess struct {
	Details InstallationDetails `json:"details"`
}

func (InstallationDetailsSuccess) bridgeEvent() {}

// InstallationDetailsFail reports that install attribution could not be resolved.
type InstallationDetailsFail struct {
	Error AdaptyError `json:"error"`
}

func (InstallationDetailsFail) bridgeEvent() {}

func DecodeProfileLoaded(data []byte) (Event, error) {
	v, err := unmarshal[ProfileLoaded](data, "profile", "profile.profile_id")
	if err != nil {
		return nil, err
	}
	return v, nil
}

func DecodeInstallationDetailsSuccess(data []byte) (Event, error) {
	v, err := unmarshal[InstallationDetailsSuccess](data, "details")
	if err != nil {
		return nil, err
	}
	return v, nil
}

func DecodeInstallationDetailsFail(data []byte) (Event, error) {
	v, err := unmarshal[InstallationDetailsFail](data, "error", "error.adapty_code")
	if err != nil {
		return nil, err
	}
	return v, nil
}
